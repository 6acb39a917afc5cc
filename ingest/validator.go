// Package ingest validates and normalizes client-submitted analytics event
// batches. A batch is accepted whole or rejected whole.
package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"leadsite/api/models"
	"leadsite/api/utils"
)

const (
	MaxEventsPerBatch = 50

	MaxSessionIDLength = 128
	MaxAnonIDLength    = 128
	MaxPagePathLength  = 500
	MaxPageTitleLength = 255
	MaxReferrerLength  = 500
	MaxUserAgentLength = 4000
)

// ItemError describes one problem with the event at Index.
type ItemError struct {
	Index  int    `json:"index"`
	Detail string `json:"detail"`
}

// BatchError rejects a whole batch. Items is empty for shape errors.
type BatchError struct {
	Detail string      `json:"detail"`
	Items  []ItemError `json:"errors,omitempty"`
}

func (e *BatchError) Error() string {
	if len(e.Items) == 0 {
		return e.Detail
	}
	return fmt.Sprintf("%s (%d item errors)", e.Detail, len(e.Items))
}

// RequestContext is what the server observed about the submitting request.
type RequestContext struct {
	User      *models.UserRef
	UserAgent string
	IPAddress string
	Now       time.Time
}

// DecodeBatch extracts the raw event items from a request body of the form
// {"events": [...]} and enforces the batch shape rules.
func DecodeBatch(body []byte) ([]json.RawMessage, *BatchError) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, &BatchError{Detail: "events must be a list."}
	}
	raw := bytes.TrimSpace(envelope["events"])
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &BatchError{Detail: "events must be a list."}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &BatchError{Detail: "events must be a list."}
	}
	if len(items) == 0 {
		return nil, &BatchError{Detail: "events list cannot be empty."}
	}
	if len(items) > MaxEventsPerBatch {
		return nil, &BatchError{Detail: fmt.Sprintf("Maximum %d events per batch allowed.", MaxEventsPerBatch)}
	}
	return items, nil
}

// ValidateBatch checks every item and returns the normalized rows. If any
// item is invalid no rows are returned and the error lists every problem.
func ValidateBatch(items []json.RawMessage, rc RequestContext) ([]models.AnalyticsEvent, *BatchError) {
	if len(items) == 0 {
		return nil, &BatchError{Detail: "events list cannot be empty."}
	}
	if len(items) > MaxEventsPerBatch {
		return nil, &BatchError{Detail: fmt.Sprintf("Maximum %d events per batch allowed.", MaxEventsPerBatch)}
	}
	if rc.Now.IsZero() {
		rc.Now = time.Now()
	}
	rc.Now = rc.Now.UTC()

	userAgent := utils.Truncate(rc.UserAgent, MaxUserAgentLength)
	deviceType := DetectDeviceType(rc.UserAgent)
	var userID *int64
	if rc.User != nil {
		id := rc.User.ID
		userID = &id
	}

	rows := make([]models.AnalyticsEvent, 0, len(items))
	var problems []ItemError
	for i, item := range items {
		row, details := normalizeItem(item, rc.Now)
		for _, d := range details {
			problems = append(problems, ItemError{Index: i, Detail: d})
		}
		if len(details) > 0 {
			continue
		}
		row.EventID = uuid.NewString()
		row.UserID = userID
		row.UserAgent = userAgent
		row.DeviceType = deviceType
		row.IPAddress = rc.IPAddress
		row.CreatedAt = rc.Now
		rows = append(rows, row)
	}

	if len(problems) > 0 {
		return nil, &BatchError{Detail: "One or more events are invalid.", Items: problems}
	}
	return rows, nil
}

// normalizeItem validates one raw item, returning every problem found.
func normalizeItem(item json.RawMessage, now time.Time) (models.AnalyticsEvent, []string) {
	var row models.AnalyticsEvent
	var fields map[string]json.RawMessage
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &fields) != nil {
		return row, []string{"Each event must be an object."}
	}

	var problems []string
	text := func(key string) string {
		s, ok := stringField(fields[key])
		if !ok {
			problems = append(problems, key+" must be a string.")
		}
		return strings.TrimSpace(s)
	}

	eventTypeKey := "event_type"
	if _, ok := fields[eventTypeKey]; !ok {
		if _, legacy := fields["event_name"]; legacy {
			eventTypeKey = "event_name"
		}
	}
	eventType, _ := stringField(fields[eventTypeKey])
	if !models.IsValidEventType(eventType) {
		problems = append(problems, "Invalid event_type.")
	}
	row.EventType = eventType

	eventTime, ok := parseEventTime(fields["event_time"], now)
	if !ok {
		problems = append(problems, "Invalid event_time.")
	}
	row.EventTime = eventTime

	row.SessionID = text("session_id")
	if row.SessionID == "" {
		problems = append(problems, "session_id is required.")
	}
	row.AnonID = text("anon_id")
	if row.AnonID == "" {
		problems = append(problems, "anon_id is required.")
	}
	row.PagePath = text("page_path")
	if row.PagePath == "" {
		problems = append(problems, "page_path is required.")
	}
	row.PageTitle = text("page_title")
	row.Referrer = text("referrer")

	props, ok := normalizeProperties(fields["properties"])
	if !ok {
		problems = append(problems, "properties must be an object.")
	}
	row.Properties = props

	row.SessionID = utils.Truncate(row.SessionID, MaxSessionIDLength)
	row.AnonID = utils.Truncate(row.AnonID, MaxAnonIDLength)
	row.PagePath = utils.Truncate(row.PagePath, MaxPagePathLength)
	row.PageTitle = utils.Truncate(row.PageTitle, MaxPageTitleLength)
	row.Referrer = utils.Truncate(row.Referrer, MaxReferrerLength)

	return row, problems
}

// stringField accepts a JSON string or number; absent and null read as "".
func stringField(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return string(raw), true
	default:
		return "", false
	}
}

func normalizeProperties(raw json.RawMessage) ([]byte, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []byte("{}"), true
	}
	if raw[0] != '{' {
		return nil, false
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, false
	}
	return compact.Bytes(), true
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseEventTime returns now for an absent or empty value. Timestamps without
// a zone are taken as UTC.
func parseEventTime(raw json.RawMessage, now time.Time) (time.Time, bool) {
	s, ok := stringField(raw)
	if !ok {
		return now, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return now, true
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return now, false
}

// DetectDeviceType classifies a User-Agent header. Precedence is
// bot > tablet > mobile > desktop; an empty header yields "".
func DetectDeviceType(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "bot"), strings.Contains(ua, "spider"), strings.Contains(ua, "crawler"):
		return "bot"
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return "mobile"
	default:
		return "desktop"
	}
}
