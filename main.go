package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"leadsite/api/config"
	"leadsite/api/database"
	"leadsite/api/handlers"
	"leadsite/api/logger"
	"leadsite/api/middleware"
	"leadsite/api/scoring"
	"leadsite/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init("leadsite-api", cfg.Env, cfg.LogLevel)

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- PostgreSQL (users) ---
	dbClient, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()
	if err := dbClient.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare PostgreSQL schema")
	}

	// --- Event log ---
	var events store.EventStore
	switch cfg.EventStore {
	case "memory":
		log.Warn().Msg("Using in-memory event store; events are lost on restart")
		events = store.NewMemoryEventStore()
	default:
		chClient, err := database.NewClickHouseDB(ctx, cfg.ClickHouse)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ClickHouse database")
		}
		defer chClient.Close()
		if err := chClient.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare ClickHouse schema")
		}
		events = store.NewAnalyticsStore(chClient)
	}

	// --- Session revocation (optional) ---
	var sessions *store.SessionStore
	if cfg.Redis.Addr != "" {
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Redis")
		}
		defer rdb.Close()
		sessions = store.NewSessionStore(rdb.Client)
	} else {
		log.Warn().Msg("REDIS_ADDR not set; logout will not revoke issued tokens")
	}

	// --- Scoring ---
	weights := scoring.DefaultWeights()
	if cfg.WeightsFile != "" {
		if weights, err = scoring.LoadWeightsFile(cfg.WeightsFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load scoring weights")
		}
		log.Info().Str("path", cfg.WeightsFile).Msg("Loaded scoring weights override")
	}

	userStore := store.NewUserStore(dbClient.DB)
	engine, err := scoring.NewEngine(events, userStore, scoring.Config{
		Weights:   weights,
		ChunkSize: cfg.ScanChunkSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scoring engine")
	}

	r := setupRouter(cfg, routerDeps{
		users:    userStore,
		sessions: sessions,
		events:   events,
		engine:   engine,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("event_store", cfg.EventStore).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

type routerDeps struct {
	users    *store.UserStore
	sessions *store.SessionStore
	events   store.EventStore
	engine   *scoring.Engine
}

func setupRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(), middleware.CORSMiddleware(cfg.FrontendOrigins))
	if cfg.EnablePprof {
		pprof.Register(r)
	}

	// A nil *SessionStore must not become a non-nil interface.
	var revoker middleware.SessionRevoker
	var revocation handlers.SessionRevocation
	if deps.sessions != nil {
		revoker, revocation = deps.sessions, deps.sessions
	}

	secret := []byte(cfg.JWTSecret)
	auth := middleware.NewAuthenticator(secret, deps.users, revoker)
	authHandlers := handlers.NewAuthHandlers(deps.users, revocation, secret, cfg.SessionTTL, cfg.SecureCookies)
	analyticsHandlers := handlers.NewAnalyticsHandlers(deps.events, deps.engine)
	adminHandlers := handlers.NewAdminHandlers(deps.events, deps.engine)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", auth.OptionalAuth(), authHandlers.Logout)
		api.GET("/profile", auth.AuthRequired(), authHandlers.Profile)

		analytics := api.Group("/analytics")
		{
			ingestChain := []gin.HandlerFunc{auth.OptionalAuth(), analyticsHandlers.IngestEvents}
			if cfg.IngestRatePerMinute > 0 {
				limiter := middleware.NewRateLimiter(cfg.IngestRatePerMinute, time.Minute)
				ingestChain = append([]gin.HandlerFunc{limiter.Middleware()}, ingestChain...)
			}
			analytics.POST("/events", ingestChain...)
			analytics.GET("/me/interest-summary", auth.AuthRequired(), analyticsHandlers.MyInterestSummary)
			analytics.GET("/anonymous/popularity-summary", analyticsHandlers.AnonymousPopularitySummary)

			admin := analytics.Group("/admin", middleware.AdminRequired(cfg.AdminAPIKey))
			{
				admin.GET("/insights", adminHandlers.Insights)
				admin.GET("/stats/event-counts", adminHandlers.EventCounts)
				admin.GET("/stats/unique-visitors", adminHandlers.UniqueVisitors)
				admin.GET("/stats/top-paths", adminHandlers.TopPaths)
			}
		}
	}
	return r
}
