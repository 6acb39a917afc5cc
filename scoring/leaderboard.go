package scoring

import (
	"context"
	"sort"
	"time"

	"leadsite/api/models"
)

// UserDirectory resolves user ids to public identities for the leaderboard.
type UserDirectory interface {
	GetUserRefsByIDs(ctx context.Context, ids []int64) (map[int64]models.UserRef, error)
}

// LeaderboardEntry is one user's interest summary with capped top lists.
type LeaderboardEntry struct {
	User                 models.UserRef        `json:"user"`
	ProcessedEvents      int                   `json:"processed_events"`
	ScoredEvents         int                   `json:"scored_events"`
	OverallInterestScore int                   `json:"overall_interest_score"`
	EventCounts          map[string]int        `json:"event_counts"`
	TopProducts          []ProductInterest     `json:"top_products"`
	TopPowerSources      []PowerSourceInterest `json:"top_power_sources"`
	TopIndustries        []IndustryInterest    `json:"top_industries"`
}

// Leaderboard ranks identified users by overall interest.
type Leaderboard struct {
	WindowDays      int                `json:"window_days"`
	Limit           int                `json:"limit"`
	PerUserTopLimit int                `json:"per_user_top_limit"`
	WindowStart     time.Time          `json:"window_start"`
	WindowEnd       time.Time          `json:"window_end"`
	Weights         map[string]int     `json:"weights"`
	TotalUsers      int                `json:"total_users"`
	Users           []LeaderboardEntry `json:"users"`
}

func rankLeaderboard(tallies map[int64]*interestTally, limit, perUserTop int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(tallies))
	for id, t := range tallies {
		entries = append(entries, LeaderboardEntry{
			User:                 models.UserRef{ID: id},
			ProcessedEvents:      t.processed,
			ScoredEvents:         t.scored,
			OverallInterestScore: t.total,
			EventCounts:          t.labelCounts,
			TopProducts:          t.topProducts(perUserTop),
			TopPowerSources:      t.topPowerSources(perUserTop),
			TopIndustries:        t.topIndustries(perUserTop),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.OverallInterestScore != b.OverallInterestScore {
			return a.OverallInterestScore > b.OverallInterestScore
		}
		if a.ProcessedEvents != b.ProcessedEvents {
			return a.ProcessedEvents > b.ProcessedEvents
		}
		return a.User.ID < b.User.ID
	})
	return truncate(entries, limit)
}
