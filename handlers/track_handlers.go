package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadsite/api/ingest"
	"leadsite/api/metrics"
	"leadsite/api/middleware"
	"leadsite/api/scoring"
	"leadsite/api/store"
	"leadsite/api/utils"
)

// maxBatchBodyBytes bounds an ingestion request body.
const maxBatchBodyBytes = 1 << 20

const (
	writeTimeout   = 15 * time.Second
	summaryTimeout = 30 * time.Second
)

type AnalyticsHandlers struct {
	Events store.EventWriter
	Engine *scoring.Engine

	now func() time.Time
}

func NewAnalyticsHandlers(events store.EventWriter, engine *scoring.Engine) *AnalyticsHandlers {
	return &AnalyticsHandlers{Events: events, Engine: engine, now: time.Now}
}

// IngestEvents validates a batch and persists it only if every item is valid.
func (h *AnalyticsHandlers) IngestEvents(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBatchBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.BatchesRejected.WithLabelValues("too_large").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Request body exceeds 1 MiB."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body."})
		return
	}

	items, batchErr := ingest.DecodeBatch(body)
	if batchErr != nil {
		metrics.BatchesRejected.WithLabelValues("shape").Inc()
		c.JSON(http.StatusBadRequest, batchErr)
		return
	}

	rc := ingest.RequestContext{
		User:      middleware.CurrentUser(c),
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Now:       h.now().UTC(),
	}
	events, batchErr := ingest.ValidateBatch(items, rc)
	if batchErr != nil {
		metrics.BatchesRejected.WithLabelValues("invalid_item").Inc()
		log.Debug().Int("items", len(items)).Int("errors", len(batchErr.Items)).Msg("Rejected analytics batch")
		c.JSON(http.StatusBadRequest, batchErr)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
	defer cancel()

	if err := h.Events.InsertAnalyticsEvents(ctx, events); err != nil {
		metrics.BatchesRejected.WithLabelValues("store_error").Inc()
		log.Error().Err(err).Int("events", len(events)).Msg("Failed to insert analytics events")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to record analytics events."})
		return
	}

	eventTypes := make([]string, len(events))
	for i := range events {
		eventTypes[i] = events[i].EventType
	}
	metrics.ObserveAccepted(eventTypes)
	c.JSON(http.StatusCreated, gin.H{"accepted": len(events)})
}

// MyInterestSummary scores the session user's recent activity.
func (h *AnalyticsHandlers) MyInterestSummary(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication required."})
		return
	}
	days := utils.ClampedInt(c.Query("days"), scoring.DefaultDays, scoring.MinDays, scoring.MaxDays)
	limit := utils.ClampedInt(c.Query("limit"), scoring.DefaultInterestLimit, scoring.MinLimit, scoring.MaxLimit)

	ctx, cancel := context.WithTimeout(c.Request.Context(), summaryTimeout)
	defer cancel()

	summary, err := h.Engine.BuildUserInterestSummary(ctx, *user, days, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to build interest summary")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to build interest summary."})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// AnonymousPopularitySummary ranks entities by anonymous traffic.
func (h *AnalyticsHandlers) AnonymousPopularitySummary(c *gin.Context) {
	days := utils.ClampedInt(c.Query("days"), scoring.DefaultDays, scoring.MinDays, scoring.MaxDays)
	limit := utils.ClampedInt(c.Query("limit"), scoring.DefaultPopularityLimit, scoring.MinLimit, scoring.MaxLimit)

	ctx, cancel := context.WithTimeout(c.Request.Context(), summaryTimeout)
	defer cancel()

	summary, err := h.Engine.BuildAnonymousPopularitySummary(ctx, days, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build popularity summary")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to build popularity summary."})
		return
	}
	c.JSON(http.StatusOK, summary)
}
