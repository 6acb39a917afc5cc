package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"leadsite/api/models"
)

// Score labels used by the interest rules. Most flat-weight event types use
// their event type as label.
const (
	LabelNavClickProducts        = "nav_click_products"
	LabelTabFeatures             = "tab_features"
	LabelTabSpecifications       = "tab_specifications"
	LabelTabDocuments            = "tab_documents"
	LabelRequestQuoteProductPage = "request_quote_click_product_detail"
	LabelPageEngagement120s      = "page_engagement_120s"
)

// Popularity metrics counted for anonymous traffic.
const (
	MetricEmailRequests = "email_requests"
	MetricDownloads     = "downloads"
	MetricDetailViews   = "detail_views"
	MetricProductClicks = "product_clicks"
	MetricClicks        = "clicks"
)

// Weights is the immutable rule configuration of an Engine.
type Weights struct {
	// Interest maps score labels to points for identified users.
	Interest map[string]int `yaml:"user_interest" json:"user_interest"`
	// Popularity maps anonymous metrics to their ranking multiplier.
	Popularity map[string]int `yaml:"anonymous_popularity" json:"anonymous_popularity"`
	// EngagementThresholdSeconds is the active time a product page
	// engagement needs before it scores.
	EngagementThresholdSeconds float64 `yaml:"engagement_threshold_seconds" json:"engagement_threshold_seconds"`
}

// DefaultWeights returns the built-in rule tables.
func DefaultWeights() Weights {
	return Weights{
		Interest: map[string]int{
			LabelNavClickProducts:                  1,
			models.EventPowerSourceCardClick:       2,
			models.EventIndustryCardClick:          2,
			models.EventProductFiltersApplied:      1,
			models.EventProductClick:               2,
			models.EventProductDetailView:          3,
			LabelTabFeatures:                       2,
			LabelTabSpecifications:                 3,
			LabelTabDocuments:                      4,
			LabelRequestQuoteProductPage:           8,
			models.EventDocumentDownloadClick:      5,
			models.EventDocumentEmailRequestSubmit: 6,
			LabelPageEngagement120s:                4,
		},
		Popularity: map[string]int{
			MetricEmailRequests: 5,
			MetricDownloads:     4,
			MetricDetailViews:   3,
			MetricProductClicks: 2,
			MetricClicks:        1,
		},
		EngagementThresholdSeconds: 120,
	}
}

// Clone returns a deep copy so callers cannot mutate an engine's tables.
func (w Weights) Clone() Weights {
	return Weights{
		Interest:                   copyWeights(w.Interest),
		Popularity:                 copyWeights(w.Popularity),
		EngagementThresholdSeconds: w.EngagementThresholdSeconds,
	}
}

// Validate rejects negative weights and a non-positive threshold.
func (w Weights) Validate() error {
	for label, points := range w.Interest {
		if points < 0 {
			return fmt.Errorf("interest weight %q is negative", label)
		}
	}
	for metric, mult := range w.Popularity {
		if mult < 0 {
			return fmt.Errorf("popularity weight %q is negative", metric)
		}
	}
	if w.EngagementThresholdSeconds <= 0 {
		return fmt.Errorf("engagement threshold must be positive")
	}
	return nil
}

// LoadWeightsFile reads a YAML override of the default tables. Keys absent
// from the file keep their default value.
func LoadWeightsFile(path string) (Weights, error) {
	w := DefaultWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("failed to read weights file: %w", err)
	}

	var override Weights
	if err := yaml.Unmarshal(data, &override); err != nil {
		return w, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}
	for label, points := range override.Interest {
		w.Interest[label] = points
	}
	for metric, mult := range override.Popularity {
		w.Popularity[metric] = mult
	}
	if override.EngagementThresholdSeconds != 0 {
		w.EngagementThresholdSeconds = override.EngagementThresholdSeconds
	}
	if err := w.Validate(); err != nil {
		return w, fmt.Errorf("invalid weights file %s: %w", path, err)
	}
	return w, nil
}

func copyWeights(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
