package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"leadsite/api/database"
	"leadsite/api/models"
	"leadsite/api/utils"
)

// AnalyticsStore is the ClickHouse-backed event log.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

var _ EventStore = (*AnalyticsStore)(nil)

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

const eventColumns = `event_id, event_type, event_time, session_id, anon_id, user_id, page_path, page_title,
	referrer, properties, user_agent, device_type, ip_address, created_at`

// eventRow lays out e in eventColumns order.
func eventRow(e *models.AnalyticsEvent) []interface{} {
	properties := string(e.Properties)
	if properties == "" {
		properties = "{}"
	}
	return []interface{}{
		e.EventID,
		e.EventType,
		e.EventTime.UTC(),
		e.SessionID,
		e.AnonID,
		e.UserID,
		e.PagePath,
		e.PageTitle,
		e.Referrer,
		properties,
		e.UserAgent,
		e.DeviceType,
		e.IPAddress,
		e.CreatedAt.UTC(),
	}
}

func (s *AnalyticsStore) InsertAnalyticsEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, "INSERT INTO analytics_events ("+eventColumns+")")
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for i := range events {
		event := &events[i]
		// The batch is all-or-nothing: a row that cannot be appended aborts the write.
		if err := batch.Append(eventRow(event)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event %s to batch: %w", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Debug().Int("count", len(events)).Msg("Inserted analytics events")
	return nil
}

// event_time is DateTime64(3) but the driver binds time.Time arguments at
// second precision, so every time bound is sent as epoch milliseconds.
const msParam = "fromUnixTimestamp64Milli(toInt64(?))"

// windowArgs returns [start, end] as epoch milliseconds, rounding start up so
// no row before it is admitted.
func windowArgs(start, end time.Time) (int64, int64) {
	startMs := start.UnixMilli()
	if start.Sub(time.UnixMilli(startMs)) > 0 {
		startMs++
	}
	return startMs, end.UnixMilli()
}

// eventPageQuery builds the keyset page read for FetchEvents.
func eventPageQuery(q EventQuery, after EventCursor, limit int) (string, []interface{}) {
	startMs, endMs := windowArgs(q.Start, q.End)
	where := []string{"event_time >= " + msParam, "event_time <= " + msParam}
	args := []interface{}{startMs, endMs}

	if len(q.EventTypes) > 0 {
		where = append(where, "event_type IN (?)")
		args = append(args, q.EventTypes)
	}
	switch {
	case q.UserID > 0:
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	case q.Audience == AudienceIdentified:
		where = append(where, "user_id IS NOT NULL")
	case q.Audience == AudienceAnonymous:
		where = append(where, "user_id IS NULL")
	}
	if !after.IsZero() {
		cursorMs := after.EventTime.UnixMilli()
		where = append(where, "(event_time > "+msParam+" OR (event_time = "+msParam+" AND event_id > ?))")
		args = append(args, cursorMs, cursorMs, after.EventID)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM analytics_events
		WHERE %s
		ORDER BY event_time ASC, event_id ASC
		LIMIT ?
	`, eventColumns, strings.Join(where, " AND "))
	return query, args
}

func (s *AnalyticsStore) FetchEvents(ctx context.Context, q EventQuery, after EventCursor, limit int) ([]models.AnalyticsEvent, error) {
	if limit <= 0 {
		limit = 500
	}
	query, args := eventPageQuery(q, after, limit)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	events := make([]models.AnalyticsEvent, 0, limit)
	for rows.Next() {
		var (
			e          models.AnalyticsEvent
			userID     *int64
			properties string
		)
		if err := rows.Scan(
			&e.EventID,
			&e.EventType,
			&e.EventTime,
			&e.SessionID,
			&e.AnonID,
			&userID,
			&e.PagePath,
			&e.PageTitle,
			&e.Referrer,
			&properties,
			&e.UserAgent,
			&e.DeviceType,
			&e.IPAddress,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		e.UserID = userID
		e.Properties = json.RawMessage(properties)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during analytics event scan: %w", err)
	}
	return events, nil
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	startMs, endMs := windowArgs(start, end)
	args := []interface{}{startMs, endMs}
	selectCols := fmt.Sprintf("toStartOf%s(event_time) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE event_time >= " + msParam + " AND event_time <= " + msParam
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM analytics_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.EventCountByTime
	for rows.Next() {
		var (
			timeBucket time.Time
			count      uint64
			eventType  string
			result     models.EventCountByTime
		)

		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventType); err != nil {
				return nil, fmt.Errorf("failed to scan event count row: %w", err)
			}
			result.EventType = &eventType
		} else if err := rows.Scan(&timeBucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count row: %w", err)
		}

		result.Time = timeBucket
		result.Count = count
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}
	return results, nil
}

func (s *AnalyticsStore) GetUniqueVisitorsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(event_time) AS time_bucket, uniqExact(anon_id) AS unique_visitors
		FROM analytics_events
		WHERE event_time >= %[2]s AND event_time <= %[2]s
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval, msParam)

	startMs, endMs := windowArgs(start, end)
	rows, err := s.DB.Conn.Query(ctx, query, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique visitors over time: %w", err)
	}
	defer rows.Close()

	var results []models.EventCountByTime
	for rows.Next() {
		var timeBucket time.Time
		var uniqueVisitors uint64
		if err := rows.Scan(&timeBucket, &uniqueVisitors); err != nil {
			return nil, fmt.Errorf("failed to scan unique visitors row: %w", err)
		}
		results = append(results, models.EventCountByTime{
			Time:  timeBucket,
			Count: uniqueVisitors,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique visitors: %w", err)
	}
	return results, nil
}

func (s *AnalyticsStore) GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT page_path, count() AS view_count
		FROM analytics_events
		WHERE event_type = 'page_view' AND event_time >= ` + msParam + ` AND event_time <= ` + msParam + `
		GROUP BY page_path
		ORDER BY view_count DESC, page_path ASC
		LIMIT ?
	`
	startMs, endMs := windowArgs(start, end)
	rows, err := s.DB.Conn.Query(ctx, query, startMs, endMs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	var results []models.TopPathResult
	for rows.Next() {
		var pagePath string
		var count uint64
		if err := rows.Scan(&pagePath, &count); err != nil {
			return nil, fmt.Errorf("failed to scan top page path row: %w", err)
		}
		results = append(results, models.TopPathResult{
			PagePath: pagePath,
			Count:    count,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top page paths: %w", err)
	}
	return results, nil
}
