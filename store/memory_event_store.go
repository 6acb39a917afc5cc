package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"leadsite/api/models"
	"leadsite/api/utils"
)

// MemoryEventStore keeps the event log in process. It backs EVENT_STORE=memory
// for local development and the package tests.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []models.AnalyticsEvent
}

var _ EventStore = (*MemoryEventStore)(nil)

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{}
}

func (s *MemoryEventStore) InsertAnalyticsEvents(_ context.Context, events []models.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	sort.SliceStable(s.events, func(i, j int) bool {
		a, b := &s.events[i], &s.events[j]
		if a.EventTime.Equal(b.EventTime) {
			return a.EventID < b.EventID
		}
		return a.EventTime.Before(b.EventTime)
	})
	return nil
}

// Len returns the number of stored rows.
func (s *MemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryEventStore) FetchEvents(ctx context.Context, q EventQuery, after EventCursor, limit int) ([]models.AnalyticsEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AnalyticsEvent
	for i := s.firstIndex(q.Start, after); i < len(s.events) && len(out) < limit; i++ {
		e := &s.events[i]
		if e.EventTime.After(q.End) {
			break
		}
		if q.matches(e) {
			out = append(out, *e)
		}
	}
	return out, nil
}

// firstIndex returns the first row at or after start and strictly after the
// cursor. Callers hold s.mu.
func (s *MemoryEventStore) firstIndex(start time.Time, after EventCursor) int {
	fromStart := sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].EventTime.Before(start)
	})
	fromCursor := sort.Search(len(s.events), func(i int) bool {
		return after.After(&s.events[i])
	})
	return max(fromStart, fromCursor)
}

func (s *MemoryEventStore) GetEventCountsOverTime(_ context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[time.Time]uint64)
	for i := range s.events {
		e := &s.events[i]
		if e.EventTime.Before(start) || e.EventTime.After(end) {
			continue
		}
		if eventTypeFilter != "" && e.EventType != eventTypeFilter {
			continue
		}
		counts[utils.StartOfInterval(e.EventTime, interval)]++
	}

	results := make([]models.EventCountByTime, 0, len(counts))
	for bucket, n := range counts {
		r := models.EventCountByTime{Time: bucket, Count: n}
		if eventTypeFilter != "" {
			et := eventTypeFilter
			r.EventType = &et
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Time.Before(results[j].Time) })
	return results, nil
}

func (s *MemoryEventStore) GetUniqueVisitorsOverTime(_ context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	visitors := make(map[time.Time]map[string]struct{})
	for i := range s.events {
		e := &s.events[i]
		if e.EventTime.Before(start) || e.EventTime.After(end) {
			continue
		}
		bucket := utils.StartOfInterval(e.EventTime, interval)
		if visitors[bucket] == nil {
			visitors[bucket] = make(map[string]struct{})
		}
		visitors[bucket][e.AnonID] = struct{}{}
	}

	results := make([]models.EventCountByTime, 0, len(visitors))
	for bucket, ids := range visitors {
		results = append(results, models.EventCountByTime{Time: bucket, Count: uint64(len(ids))})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Time.Before(results[j].Time) })
	return results, nil
}

func (s *MemoryEventStore) GetTopNPagePaths(_ context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]uint64)
	for i := range s.events {
		e := &s.events[i]
		if e.EventType != models.EventPageView || e.EventTime.Before(start) || e.EventTime.After(end) {
			continue
		}
		counts[e.PagePath]++
	}

	results := make([]models.TopPathResult, 0, len(counts))
	for path, n := range counts {
		results = append(results, models.TopPathResult{PagePath: path, Count: n})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].PagePath < results[j].PagePath
	})
	if uint64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}
