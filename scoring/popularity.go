package scoring

import (
	"sort"
	"time"

	"leadsite/api/models"
)

var (
	productMetrics     = []string{MetricProductClicks, MetricDetailViews, MetricDownloads, MetricEmailRequests}
	documentMetrics    = []string{MetricDownloads, MetricEmailRequests}
	powerSourceMetrics = []string{MetricClicks, MetricProductClicks, MetricDetailViews}
	industryMetrics    = []string{MetricClicks, MetricProductClicks, MetricDetailViews}
)

// Popularity is the shared counting part of every anonymous ranking row.
type Popularity struct {
	Counts              map[string]int `json:"counts"`
	UniqueVisitors      map[string]int `json:"unique_visitors"`
	UniqueVisitorsTotal int            `json:"unique_visitors_total"`
	PopularityScore     int            `json:"popularity_score"`

	visitors    map[string]map[string]struct{}
	allVisitors map[string]struct{}
}

func newPopularity(metrics []string) Popularity {
	p := Popularity{
		Counts:         make(map[string]int, len(metrics)),
		UniqueVisitors: make(map[string]int, len(metrics)),
		visitors:       make(map[string]map[string]struct{}, len(metrics)),
		allVisitors:    make(map[string]struct{}),
	}
	for _, m := range metrics {
		p.Counts[m] = 0
		p.UniqueVisitors[m] = 0
		p.visitors[m] = make(map[string]struct{})
	}
	return p
}

func (p *Popularity) record(metric, anonID string) {
	if _, ok := p.Counts[metric]; !ok {
		return
	}
	p.Counts[metric]++
	p.visitors[metric][anonID] = struct{}{}
	p.allVisitors[anonID] = struct{}{}
}

func (p *Popularity) finalize(weights map[string]int) {
	p.PopularityScore = 0
	for metric, n := range p.Counts {
		p.PopularityScore += n * weights[metric]
		p.UniqueVisitors[metric] = len(p.visitors[metric])
	}
	p.UniqueVisitorsTotal = len(p.allVisitors)
}

type ProductPopularity struct {
	ProductID       int64  `json:"product_id"`
	ProductSlug     string `json:"product_slug"`
	ProductName     string `json:"product_name"`
	PowerSourceSlug string `json:"power_source_slug"`
	PowerSourceName string `json:"power_source_name"`
	Popularity
}

type DocumentPopularity struct {
	CatalogueID   int64  `json:"catalogue_id"`
	DocumentTitle string `json:"document_title"`
	ProductID     int64  `json:"product_id,omitempty"`
	ProductSlug   string `json:"product_slug"`
	ProductName   string `json:"product_name"`
	Popularity
}

type PowerSourcePopularity struct {
	PowerSourceSlug string `json:"power_source_slug"`
	PowerSourceName string `json:"power_source_name"`
	Popularity
}

type IndustryPopularity struct {
	IndustrySlug string `json:"industry_slug"`
	IndustryName string `json:"industry_name"`
	Popularity
}

// PopularitySummary is the anonymous-visitor popularity report.
type PopularitySummary struct {
	WindowDays      int                     `json:"window_days"`
	Limit           int                     `json:"limit"`
	WindowStart     time.Time               `json:"window_start"`
	WindowEnd       time.Time               `json:"window_end"`
	Weights         map[string]int          `json:"weights"`
	ProcessedEvents int                     `json:"processed_events"`
	UniqueVisitors  int                     `json:"unique_visitors"`
	TopProducts     []ProductPopularity     `json:"top_products"`
	TopDocuments    []DocumentPopularity    `json:"top_documents"`
	TopPowerSources []PowerSourcePopularity `json:"top_power_sources"`
	TopIndustries   []IndustryPopularity    `json:"top_industries"`
}

type popularityTally struct {
	processed    int
	visitors     map[string]struct{}
	products     map[int64]*ProductPopularity
	documents    map[int64]*DocumentPopularity
	powerSources map[string]*PowerSourcePopularity
	industries   map[string]*IndustryPopularity
}

func newPopularityTally() *popularityTally {
	return &popularityTally{
		visitors:     make(map[string]struct{}),
		products:     make(map[int64]*ProductPopularity),
		documents:    make(map[int64]*DocumentPopularity),
		powerSources: make(map[string]*PowerSourcePopularity),
		industries:   make(map[string]*IndustryPopularity),
	}
}

// popularityMetric maps an anonymous event type to the metric it counts
// toward on products, documents and power sources/industries respectively.
func popularityMetric(eventType string) (product, document, dimension string) {
	switch eventType {
	case models.EventPowerSourceCardClick, models.EventIndustryCardClick:
		return "", "", MetricClicks
	case models.EventProductClick:
		return MetricProductClicks, "", MetricProductClicks
	case models.EventProductDetailView:
		return MetricDetailViews, "", MetricDetailViews
	case models.EventDocumentDownloadClick:
		return MetricDownloads, MetricDownloads, ""
	case models.EventDocumentEmailRequestSubmit:
		return MetricEmailRequests, MetricEmailRequests, ""
	}
	return "", "", ""
}

func (t *popularityTally) add(e *models.AnalyticsEvent) {
	t.processed++
	t.visitors[e.AnonID] = struct{}{}

	props := models.ParseProperties(e.EventType, e.Properties)
	ctx := contextOf(props)
	productMetric, documentMetric, dimensionMetric := popularityMetric(e.EventType)

	if p := ctx.product; p != nil && productMetric != "" {
		row, ok := t.products[p.ID]
		if !ok {
			row = &ProductPopularity{ProductID: p.ID, Popularity: newPopularity(productMetrics)}
			t.products[p.ID] = row
		}
		fillEmpty(&row.ProductSlug, p.Slug)
		fillEmpty(&row.ProductName, p.Name)
		fillEmpty(&row.PowerSourceSlug, p.PowerSourceSlug)
		fillEmpty(&row.PowerSourceName, p.PowerSourceName)
		row.record(productMetric, e.AnonID)
	}

	if documentMetric != "" && props.CatalogueID != 0 {
		row, ok := t.documents[props.CatalogueID]
		if !ok {
			row = &DocumentPopularity{CatalogueID: props.CatalogueID, Popularity: newPopularity(documentMetrics)}
			t.documents[props.CatalogueID] = row
		}
		fillEmpty(&row.DocumentTitle, props.DocumentTitle)
		if row.ProductID == 0 {
			row.ProductID = props.ProductID
		}
		fillEmpty(&row.ProductSlug, props.ProductSlug)
		fillEmpty(&row.ProductName, props.ProductName)
		row.record(documentMetric, e.AnonID)
	}

	if dimensionMetric == "" {
		return
	}
	// Card clicks only count toward their own dimension.
	countPowerSource := e.EventType != models.EventIndustryCardClick
	countIndustries := e.EventType != models.EventPowerSourceCardClick

	if ps := ctx.powerSource; countPowerSource && ps.Slug != "" {
		row, ok := t.powerSources[ps.Slug]
		if !ok {
			row = &PowerSourcePopularity{PowerSourceSlug: ps.Slug, Popularity: newPopularity(powerSourceMetrics)}
			t.powerSources[ps.Slug] = row
		}
		fillEmpty(&row.PowerSourceName, ps.Name)
		row.record(dimensionMetric, e.AnonID)
	}
	if !countIndustries {
		return
	}
	for _, ind := range ctx.industries {
		row, ok := t.industries[ind.Slug]
		if !ok {
			row = &IndustryPopularity{IndustrySlug: ind.Slug, Popularity: newPopularity(industryMetrics)}
			t.industries[ind.Slug] = row
		}
		fillEmpty(&row.IndustryName, ind.Name)
		row.record(dimensionMetric, e.AnonID)
	}
}

// popularityLess orders by score, then the primary and secondary metric,
// all descending; ok is false when a and b tie on all three.
func popularityLess(a, b *Popularity, primary, secondary string) (less, ok bool) {
	if a.PopularityScore != b.PopularityScore {
		return a.PopularityScore > b.PopularityScore, true
	}
	if a.Counts[primary] != b.Counts[primary] {
		return a.Counts[primary] > b.Counts[primary], true
	}
	if a.Counts[secondary] != b.Counts[secondary] {
		return a.Counts[secondary] > b.Counts[secondary], true
	}
	return false, false
}

func (t *popularityTally) topProducts(limit int, weights map[string]int) []ProductPopularity {
	out := make([]ProductPopularity, 0, len(t.products))
	for _, row := range t.products {
		row.finalize(weights)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if less, ok := popularityLess(&out[i].Popularity, &out[j].Popularity, MetricDetailViews, MetricProductClicks); ok {
			return less
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, limit)
}

func (t *popularityTally) topDocuments(limit int, weights map[string]int) []DocumentPopularity {
	out := make([]DocumentPopularity, 0, len(t.documents))
	for _, row := range t.documents {
		row.finalize(weights)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if less, ok := popularityLess(&out[i].Popularity, &out[j].Popularity, MetricDownloads, MetricEmailRequests); ok {
			return less
		}
		return out[i].CatalogueID < out[j].CatalogueID
	})
	return truncate(out, limit)
}

func (t *popularityTally) topPowerSources(limit int, weights map[string]int) []PowerSourcePopularity {
	out := make([]PowerSourcePopularity, 0, len(t.powerSources))
	for _, row := range t.powerSources {
		row.finalize(weights)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if less, ok := popularityLess(&out[i].Popularity, &out[j].Popularity, MetricClicks, MetricDetailViews); ok {
			return less
		}
		return out[i].PowerSourceSlug < out[j].PowerSourceSlug
	})
	return truncate(out, limit)
}

func (t *popularityTally) topIndustries(limit int, weights map[string]int) []IndustryPopularity {
	out := make([]IndustryPopularity, 0, len(t.industries))
	for _, row := range t.industries {
		row.finalize(weights)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if less, ok := popularityLess(&out[i].Popularity, &out[j].Popularity, MetricClicks, MetricDetailViews); ok {
			return less
		}
		return out[i].IndustrySlug < out[j].IndustrySlug
	})
	return truncate(out, limit)
}
