// Package scoring turns a window of the analytics event log into ranked
// interest and popularity summaries. Summaries are recomputed from raw
// events on every call; nothing is cached between calls.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"leadsite/api/metrics"
	"leadsite/api/models"
	"leadsite/api/store"
)

const (
	DefaultDays            = 30
	MinDays                = 1
	MaxDays                = 180
	DefaultInterestLimit   = 10
	DefaultPopularityLimit = 10
	DefaultLeaderboardSize = 20
	MinLimit               = 1
	MaxLimit               = 100
	DefaultPerUserTopLimit = 3
	MaxPerUserTopLimit     = 10
)

// Config controls an Engine.
type Config struct {
	Weights   Weights
	ChunkSize int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Engine builds summaries. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	reader  store.EventReader
	users   UserDirectory
	weights Weights
	chunk   int
	now     func() time.Time
}

// NewEngine creates an engine reading from reader. users may be nil, in which
// case leaderboard entries carry only the user id.
func NewEngine(reader store.EventReader, users UserDirectory, cfg Config) (*Engine, error) {
	if cfg.Weights.Interest == nil && cfg.Weights.Popularity == nil {
		cfg.Weights = DefaultWeights()
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		reader:  reader,
		users:   users,
		weights: cfg.Weights.Clone(),
		chunk:   cfg.ChunkSize,
		now:     cfg.Now,
	}, nil
}

// Weights returns a copy of the engine's rule tables.
func (e *Engine) Weights() Weights {
	return e.weights.Clone()
}

func clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Engine) window(days int) (int, time.Time, time.Time) {
	days = clamp(days, DefaultDays, MinDays, MaxDays)
	end := e.now().UTC()
	return days, end.AddDate(0, 0, -days), end
}

// BuildUserInterestSummary scores one identified user's events in the last
// days days.
func (e *Engine) BuildUserInterestSummary(ctx context.Context, user models.UserRef, days, limit int) (*InterestSummary, error) {
	started := time.Now()
	days, start, end := e.window(days)
	limit = clamp(limit, DefaultInterestLimit, MinLimit, MaxLimit)

	it := NewEventIterator(e.reader, store.EventQuery{
		Start:      start,
		End:        end,
		EventTypes: UserInterestEventTypes,
		Audience:   store.AudienceIdentified,
		UserID:     user.ID,
	}, e.chunk)

	tally := newInterestTally()
	for it.Next(ctx) {
		tally.add(it.Event(), &e.weights)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan events for user %d: %w", user.ID, err)
	}
	metrics.ObserveSummary("user_interest", started, tally.processed)

	u := user
	return &InterestSummary{
		User:                 &u,
		WindowDays:           days,
		Limit:                limit,
		WindowStart:          start,
		WindowEnd:            end,
		Weights:              copyWeights(e.weights.Interest),
		ProcessedEvents:      tally.processed,
		ScoredEvents:         tally.scored,
		OverallInterestScore: tally.total,
		EventCounts:          tally.labelCounts,
		UnscoredEventCounts:  tally.unscoredCounts,
		TopProducts:          tally.topProducts(limit),
		TopPowerSources:      tally.topPowerSources(limit),
		TopIndustries:        tally.topIndustries(limit),
	}, nil
}

// BuildAnonymousPopularitySummary ranks entities by anonymous traffic in the
// last days days.
func (e *Engine) BuildAnonymousPopularitySummary(ctx context.Context, days, limit int) (*PopularitySummary, error) {
	started := time.Now()
	days, start, end := e.window(days)
	limit = clamp(limit, DefaultPopularityLimit, MinLimit, MaxLimit)

	it := NewEventIterator(e.reader, store.EventQuery{
		Start:      start,
		End:        end,
		EventTypes: AnonymousPopularityEventTypes,
		Audience:   store.AudienceAnonymous,
	}, e.chunk)

	tally := newPopularityTally()
	for it.Next(ctx) {
		tally.add(it.Event())
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan anonymous events: %w", err)
	}
	metrics.ObserveSummary("anonymous_popularity", started, tally.processed)

	w := e.weights.Popularity
	return &PopularitySummary{
		WindowDays:      days,
		Limit:           limit,
		WindowStart:     start,
		WindowEnd:       end,
		Weights:         copyWeights(w),
		ProcessedEvents: tally.processed,
		UniqueVisitors:  len(tally.visitors),
		TopProducts:     tally.topProducts(limit, w),
		TopDocuments:    tally.topDocuments(limit, w),
		TopPowerSources: tally.topPowerSources(limit, w),
		TopIndustries:   tally.topIndustries(limit, w),
	}, nil
}

// BuildUserInterestLeaderboard scores every identified user with events in
// the window in a single pass and returns the top limit users.
func (e *Engine) BuildUserInterestLeaderboard(ctx context.Context, days, limit, perUserTopLimit int) (*Leaderboard, error) {
	started := time.Now()
	days, start, end := e.window(days)
	limit = clamp(limit, DefaultLeaderboardSize, MinLimit, MaxLimit)
	perUserTopLimit = clamp(perUserTopLimit, DefaultPerUserTopLimit, 1, MaxPerUserTopLimit)

	it := NewEventIterator(e.reader, store.EventQuery{
		Start:      start,
		End:        end,
		EventTypes: UserInterestEventTypes,
		Audience:   store.AudienceIdentified,
	}, e.chunk)

	tallies := make(map[int64]*interestTally)
	scanned := 0
	for it.Next(ctx) {
		ev := it.Event()
		if ev.UserID == nil {
			continue
		}
		scanned++
		t, ok := tallies[*ev.UserID]
		if !ok {
			t = newInterestTally()
			tallies[*ev.UserID] = t
		}
		t.add(ev, &e.weights)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan identified events: %w", err)
	}

	entries := rankLeaderboard(tallies, limit, perUserTopLimit)
	if err := e.resolveUsers(ctx, entries); err != nil {
		return nil, err
	}
	metrics.ObserveSummary("leaderboard", started, scanned)

	return &Leaderboard{
		WindowDays:      days,
		Limit:           limit,
		PerUserTopLimit: perUserTopLimit,
		WindowStart:     start,
		WindowEnd:       end,
		Weights:         copyWeights(e.weights.Interest),
		TotalUsers:      len(tallies),
		Users:           entries,
	}, nil
}

func (e *Engine) resolveUsers(ctx context.Context, entries []LeaderboardEntry) error {
	if e.users == nil || len(entries) == 0 {
		return nil
	}
	ids := make([]int64, len(entries))
	for i := range entries {
		ids[i] = entries[i].User.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	refs, err := e.users.GetUserRefsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve leaderboard users: %w", err)
	}
	for i := range entries {
		if ref, ok := refs[entries[i].User.ID]; ok {
			entries[i].User = ref
		} else {
			log.Debug().Int64("user_id", entries[i].User.ID).Msg("Leaderboard user not found in directory")
		}
	}
	return nil
}
