package models

import (
	"encoding/json"
	"time"
)

// Event types accepted by the ingestion endpoint. The set is closed.
const (
	EventPageView                         = "page_view"
	EventPageEngagement                   = "page_engagement"
	EventNavClick                         = "nav_click"
	EventPowerSourceCardClick             = "power_source_card_click"
	EventIndustryCardClick                = "industry_card_click"
	EventProductFiltersApplied            = "product_filters_applied"
	EventProductClick                     = "product_click"
	EventProductDetailView                = "product_detail_view"
	EventProductDetailTabClick            = "product_detail_tab_click"
	EventRequestQuoteClick                = "request_quote_click"
	EventDocumentDownloadClick            = "document_download_click"
	EventDocumentEmailRequestOpen         = "document_email_request_open"
	EventDocumentEmailRequestSubmit       = "document_email_request_submit"
	EventDocumentEmailRequestSubmitFailed = "document_email_request_submit_failed"
)

// EventTypes lists every valid event type in declaration order.
var EventTypes = []string{
	EventPageView,
	EventPageEngagement,
	EventNavClick,
	EventPowerSourceCardClick,
	EventIndustryCardClick,
	EventProductFiltersApplied,
	EventProductClick,
	EventProductDetailView,
	EventProductDetailTabClick,
	EventRequestQuoteClick,
	EventDocumentDownloadClick,
	EventDocumentEmailRequestOpen,
	EventDocumentEmailRequestSubmit,
	EventDocumentEmailRequestSubmitFailed,
}

var eventTypeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(EventTypes))
	for _, t := range EventTypes {
		set[t] = struct{}{}
	}
	return set
}()

// IsValidEventType reports whether t belongs to the closed event type set.
func IsValidEventType(t string) bool {
	_, ok := eventTypeSet[t]
	return ok
}

// AnalyticsEvent is one persisted behavioral event. Rows are append-only.
type AnalyticsEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	EventTime  time.Time       `json:"event_time"`
	SessionID  string          `json:"session_id"`
	AnonID     string          `json:"anon_id"`
	UserID     *int64          `json:"user_id,omitempty"`
	PagePath   string          `json:"page_path"`
	PageTitle  string          `json:"page_title"`
	Referrer   string          `json:"referrer"`
	Properties json.RawMessage `json:"properties"`
	UserAgent  string          `json:"user_agent"`
	DeviceType string          `json:"device_type"`
	IPAddress  string          `json:"ip_address"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsAnonymous reports whether the event was recorded without an identified user.
func (e *AnalyticsEvent) IsAnonymous() bool {
	return e.UserID == nil
}

// EventCountByTime is one bucket of the admin event-count series.
type EventCountByTime struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"event_type,omitempty"`
	Count     uint64    `json:"count"`
}

type TopPathResult struct {
	PagePath string `json:"page_path"`
	Count    uint64 `json:"count"`
}
