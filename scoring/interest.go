package scoring

import (
	"sort"
	"time"

	"leadsite/api/models"
)

type ProductInterest struct {
	ProductID       int64          `json:"product_id"`
	ProductSlug     string         `json:"product_slug"`
	ProductName     string         `json:"product_name"`
	PowerSourceSlug string         `json:"power_source_slug"`
	PowerSourceName string         `json:"power_source_name"`
	Score           int            `json:"score"`
	EventCounts     map[string]int `json:"event_counts"`
}

type PowerSourceInterest struct {
	PowerSourceSlug string         `json:"power_source_slug"`
	PowerSourceName string         `json:"power_source_name"`
	Score           int            `json:"score"`
	EventCounts     map[string]int `json:"event_counts"`
}

type IndustryInterest struct {
	IndustrySlug string         `json:"industry_slug"`
	IndustryName string         `json:"industry_name"`
	Score        int            `json:"score"`
	EventCounts  map[string]int `json:"event_counts"`
}

// InterestSummary is the per-user interest report.
type InterestSummary struct {
	User                 *models.UserRef       `json:"user,omitempty"`
	WindowDays           int                   `json:"window_days"`
	Limit                int                   `json:"limit"`
	WindowStart          time.Time             `json:"window_start"`
	WindowEnd            time.Time             `json:"window_end"`
	Weights              map[string]int        `json:"weights"`
	ProcessedEvents      int                   `json:"processed_events"`
	ScoredEvents         int                   `json:"scored_events"`
	OverallInterestScore int                   `json:"overall_interest_score"`
	EventCounts          map[string]int        `json:"event_counts"`
	UnscoredEventCounts  map[string]int        `json:"unscored_event_counts"`
	TopProducts          []ProductInterest     `json:"top_products"`
	TopPowerSources      []PowerSourceInterest `json:"top_power_sources"`
	TopIndustries        []IndustryInterest    `json:"top_industries"`
}

// interestTally accumulates interest points for one user over one pass.
type interestTally struct {
	processed int
	scored    int
	total     int

	labelCounts    map[string]int
	unscoredCounts map[string]int

	products     map[int64]*ProductInterest
	powerSources map[string]*PowerSourceInterest
	industries   map[string]*IndustryInterest
}

func newInterestTally() *interestTally {
	return &interestTally{
		labelCounts:    make(map[string]int),
		unscoredCounts: make(map[string]int),
		products:       make(map[int64]*ProductInterest),
		powerSources:   make(map[string]*PowerSourceInterest),
		industries:     make(map[string]*IndustryInterest),
	}
}

func (t *interestTally) add(e *models.AnalyticsEvent, w *Weights) {
	t.processed++
	props := models.ParseProperties(e.EventType, e.Properties)
	s := scoreEvent(e.EventType, props, w)
	if s.points <= 0 {
		t.unscoredCounts[e.EventType]++
		return
	}

	t.scored++
	t.total += s.points
	t.labelCounts[s.label]++

	if p := s.ctx.product; p != nil {
		row, ok := t.products[p.ID]
		if !ok {
			row = &ProductInterest{ProductID: p.ID, EventCounts: make(map[string]int)}
			t.products[p.ID] = row
		}
		fillEmpty(&row.ProductSlug, p.Slug)
		fillEmpty(&row.ProductName, p.Name)
		fillEmpty(&row.PowerSourceSlug, p.PowerSourceSlug)
		fillEmpty(&row.PowerSourceName, p.PowerSourceName)
		row.Score += s.points
		row.EventCounts[s.label]++
	}

	if ps := s.ctx.powerSource; ps.Slug != "" {
		row, ok := t.powerSources[ps.Slug]
		if !ok {
			row = &PowerSourceInterest{PowerSourceSlug: ps.Slug, EventCounts: make(map[string]int)}
			t.powerSources[ps.Slug] = row
		}
		fillEmpty(&row.PowerSourceName, ps.Name)
		row.Score += s.points
		row.EventCounts[s.label]++
	}

	for _, ind := range s.ctx.industries {
		row, ok := t.industries[ind.Slug]
		if !ok {
			row = &IndustryInterest{IndustrySlug: ind.Slug, EventCounts: make(map[string]int)}
			t.industries[ind.Slug] = row
		}
		fillEmpty(&row.IndustryName, ind.Name)
		row.Score += s.points
		row.EventCounts[s.label]++
	}
}

func (t *interestTally) topProducts(limit int) []ProductInterest {
	out := make([]ProductInterest, 0, len(t.products))
	for _, row := range t.products {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, limit)
}

func (t *interestTally) topPowerSources(limit int) []PowerSourceInterest {
	out := make([]PowerSourceInterest, 0, len(t.powerSources))
	for _, row := range t.powerSources {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PowerSourceSlug < out[j].PowerSourceSlug
	})
	return truncate(out, limit)
}

func (t *interestTally) topIndustries(limit int) []IndustryInterest {
	out := make([]IndustryInterest, 0, len(t.industries))
	for _, row := range t.industries {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].IndustrySlug < out[j].IndustrySlug
	})
	return truncate(out, limit)
}

func truncate[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
