package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsite/api/models"
	"leadsite/api/store"
)

func TestDefaultWeightsAreValid(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())
	assert.Equal(t, 2, w.Interest[models.EventProductClick])
	assert.Equal(t, 4, w.Interest[LabelTabDocuments])
	assert.Equal(t, 5, w.Popularity[MetricEmailRequests])
	assert.Equal(t, 120.0, w.EngagementThresholdSeconds)
}

func TestLoadWeightsFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	content := `
user_interest:
  product_click: 5
anonymous_popularity:
  clicks: 0
engagement_threshold_seconds: 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	w, err := LoadWeightsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, w.Interest[models.EventProductClick])
	assert.Equal(t, 3, w.Interest[models.EventProductDetailView])
	assert.Equal(t, 0, w.Popularity[MetricClicks])
	assert.Equal(t, 4, w.Popularity[MetricDownloads])
	assert.Equal(t, 60.0, w.EngagementThresholdSeconds)
}

func TestLoadWeightsFileErrors(t *testing.T) {
	_, err := LoadWeightsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("user_interest: [1, 2"), 0o600))
	_, err = LoadWeightsFile(bad)
	assert.Error(t, err)

	negative := filepath.Join(t.TempDir(), "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("user_interest:\n  product_click: -2\n"), 0o600))
	_, err = LoadWeightsFile(negative)
	assert.ErrorContains(t, err, "negative")
}

func TestEngineUsesOverriddenThreshold(t *testing.T) {
	w := DefaultWeights()
	w.EngagementThresholdSeconds = 60

	b := &eventBuilder{}
	b.add(models.EventPageEngagement, 1, "a1", 0, `{"product_id":7,"page_type":"product_detail","active_seconds":90}`)
	s := store.NewMemoryEventStore()
	require.NoError(t, s.InsertAnalyticsEvents(context.Background(), b.events))
	engine, err := NewEngine(s, nil, Config{Weights: w, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	summary, err := engine.BuildUserInterestSummary(context.Background(), models.UserRef{ID: 1}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.OverallInterestScore)
}
