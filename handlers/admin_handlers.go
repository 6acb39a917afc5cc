package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"leadsite/api/scoring"
	"leadsite/api/store"
	"leadsite/api/utils"
)

const (
	statsTimeout       = 10 * time.Second
	defaultStatsWindow = 7 * 24 * time.Hour
)

// AdminHandlers serves the staff dashboard.
type AdminHandlers struct {
	Stats  store.StatsReader
	Engine *scoring.Engine

	now func() time.Time
}

func NewAdminHandlers(stats store.StatsReader, engine *scoring.Engine) *AdminHandlers {
	return &AdminHandlers{Stats: stats, Engine: engine, now: time.Now}
}

// Insights combines the user leaderboard with the anonymous popularity
// summary over the same window.
func (h *AdminHandlers) Insights(c *gin.Context) {
	days := utils.ClampedInt(c.Query("days"), scoring.DefaultDays, scoring.MinDays, scoring.MaxDays)
	userLimit := utils.ClampedInt(c.Query("user_limit"), scoring.DefaultLeaderboardSize, scoring.MinLimit, scoring.MaxLimit)
	anonLimit := utils.ClampedInt(c.Query("anon_limit"), scoring.DefaultPopularityLimit, scoring.MinLimit, scoring.MaxLimit)
	perUserTop := utils.ClampedInt(c.Query("per_user_top_limit"), scoring.DefaultPerUserTopLimit, 1, scoring.MaxPerUserTopLimit)

	ctx, cancel := context.WithTimeout(c.Request.Context(), summaryTimeout)
	defer cancel()

	leaderboard, err := h.Engine.BuildUserInterestLeaderboard(ctx, days, userLimit, perUserTop)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build user leaderboard")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to build insights."})
		return
	}
	popularity, err := h.Engine.BuildAnonymousPopularitySummary(ctx, days, anonLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build popularity summary")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to build insights."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_days":               days,
		"user_interest_leaderboard": leaderboard,
		"anonymous_popularity":      popularity,
	})
}

// parseRange reads the optional RFC3339 start and end query parameters,
// defaulting to the last seven days.
func (h *AdminHandlers) parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	end := h.now().UTC()
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)."})
			return time.Time{}, time.Time{}, false
		}
		end = t.UTC()
	}
	start := end.Add(-defaultStatsWindow)
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)."})
			return time.Time{}, time.Time{}, false
		}
		start = t.UTC()
	}
	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "'start' must not be after 'end'."})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseInterval(c *gin.Context) (string, bool) {
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "interval must be one of Minute, Hour, Day, Week, Month, Quarter, Year."})
		return "", false
	}
	return interval, true
}

func (h *AdminHandlers) EventCounts(c *gin.Context) {
	interval, ok := parseInterval(c)
	if !ok {
		return
	}
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	results, err := h.Stats.GetEventCountsOverTime(ctx, interval, start, end, c.Query("event_type"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get event counts over time")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to retrieve event statistics."})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *AdminHandlers) UniqueVisitors(c *gin.Context) {
	interval, ok := parseInterval(c)
	if !ok {
		return
	}
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	results, err := h.Stats.GetUniqueVisitorsOverTime(ctx, interval, start, end)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get unique visitors over time")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to retrieve unique visitor statistics."})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *AdminHandlers) TopPaths(c *gin.Context) {
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = min(parsed, uint64(scoring.MaxLimit))
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	results, err := h.Stats.GetTopNPagePaths(ctx, start, end, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get top page paths")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to retrieve top page paths statistics."})
		return
	}
	c.JSON(http.StatusOK, results)
}
