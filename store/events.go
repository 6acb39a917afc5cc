package store

import (
	"context"
	"time"

	"leadsite/api/models"
)

// Audience restricts an event read to identified or anonymous traffic.
type Audience int

const (
	AudienceAll Audience = iota
	AudienceIdentified
	AudienceAnonymous
)

// EventQuery selects a time-bounded slice of the event log. Start and End
// are both inclusive. A positive UserID narrows the read to that user and
// implies AudienceIdentified.
type EventQuery struct {
	Start      time.Time
	End        time.Time
	EventTypes []string
	Audience   Audience
	UserID     int64
}

// EventCursor is a keyset position in (event_time, event_id) order. The zero
// value points before the first row.
type EventCursor struct {
	EventTime time.Time
	EventID   string
}

func (c EventCursor) IsZero() bool {
	return c.EventTime.IsZero() && c.EventID == ""
}

// After reports whether e sorts strictly after the cursor.
func (c EventCursor) After(e *models.AnalyticsEvent) bool {
	if c.IsZero() {
		return true
	}
	if e.EventTime.Equal(c.EventTime) {
		return e.EventID > c.EventID
	}
	return e.EventTime.After(c.EventTime)
}

// CursorOf returns the cursor positioned on e.
func CursorOf(e *models.AnalyticsEvent) EventCursor {
	return EventCursor{EventTime: e.EventTime, EventID: e.EventID}
}

// EventReader pages through the event log in (event_time, event_id) order.
type EventReader interface {
	FetchEvents(ctx context.Context, q EventQuery, after EventCursor, limit int) ([]models.AnalyticsEvent, error)
}

// EventWriter persists a validated batch in one write.
type EventWriter interface {
	InsertAnalyticsEvents(ctx context.Context, events []models.AnalyticsEvent) error
}

// StatsReader serves the admin traffic statistics.
type StatsReader interface {
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventCountByTime, error)
	GetUniqueVisitorsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error)
	GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error)
}

// EventStore is the full event log contract.
type EventStore interface {
	EventReader
	EventWriter
	StatsReader
}

func (q EventQuery) matches(e *models.AnalyticsEvent) bool {
	if e.EventTime.Before(q.Start) || e.EventTime.After(q.End) {
		return false
	}
	if len(q.EventTypes) > 0 && !contains(q.EventTypes, e.EventType) {
		return false
	}
	if q.UserID > 0 {
		return e.UserID != nil && *e.UserID == q.UserID
	}
	switch q.Audience {
	case AudienceIdentified:
		return e.UserID != nil
	case AudienceAnonymous:
		return e.UserID == nil
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
