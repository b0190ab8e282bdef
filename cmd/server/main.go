// Command server runs the broker CRM API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imob-crm/internal/ai"
	"imob-crm/internal/assistant"
	"imob-crm/internal/auth"
	"imob-crm/internal/budget"
	"imob-crm/internal/cache"
	"imob-crm/internal/config"
	"imob-crm/internal/db"
	"imob-crm/internal/handlers"
	"imob-crm/internal/logging"
	"imob-crm/internal/metrics"
	"imob-crm/internal/middleware"
	"imob-crm/internal/services"
	"imob-crm/internal/spend"
	"imob-crm/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnvFiles()
	logging.Init()
	defer logging.Sync()
	log := logging.L()

	if err := run(log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg := config.Load()
	validation := cfg.Validate()
	for _, w := range validation.Warnings {
		log.Warn("configuration warning", zap.String("detail", w))
	}
	if validation.HasErrors() {
		return fmt.Errorf("invalid configuration: %w", validation)
	}
	cfg.LogStatus()

	database, err := db.Connect(cfg.Database, cfg.Environment)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	counter, closeCounter, err := newSpendCounter(cfg)
	if err != nil {
		return err
	}
	defer closeCounter()

	tracker := spend.NewSpendTracker(database.DB)
	enforcer := budget.NewEnforcer(counter, cfg.MonthlySpendLimit)
	router := ai.NewRouter(ai.DefaultTiers(ai.ProvidersConfig{
		GeminiAPIKey:       cfg.GeminiAPIKey,
		GeminiModel:        cfg.GeminiModel,
		OpenAIAPIKey:       cfg.OpenAIAPIKey,
		OpenAIDefaultModel: cfg.OpenAIDefaultModel,
	}), enforcer, ai.WithSpendRecorder(tracker))
	asst := assistant.New(router)

	// PropertyService needs an untyped nil when storage is off
	var photos storage.Provider
	s3, err := storage.NewS3Storage(context.Background(), cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		log.Warn("photo storage disabled - S3_BUCKET or credentials not set")
	case err != nil:
		return err
	default:
		photos = s3
	}

	leads := services.NewLeadService(database.DB)
	negotiations := services.NewNegotiationService(database.DB)
	h := handlers.NewHandler(database.DB,
		leads,
		services.NewPropertyService(database.DB, photos),
		negotiations,
		services.NewConversationService(database.DB, asst),
		services.NewAIService(database.DB, asst, leads, negotiations, router, tracker),
	)
	if pinger, ok := counter.(handlers.Pinger); ok {
		h.SpendStore = pinger
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.EnableMetrics {
		collector := metrics.NewCRMCollector(database.DB, 30*time.Second)
		collector.Start(ctx)
		defer collector.Stop()
	}

	engine := setupRouter(cfg, h, auth.NewJWTService(cfg.SupabaseJWTSecret, auth.DefaultAudience))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	// Graceful shutdown: listen for SIGTERM/SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		log.Info("received signal, starting graceful shutdown", zap.String("signal", sig.String()))
	}

	// Give in-flight requests up to 15 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
	log.Info("graceful shutdown complete")
	return nil
}

// newSpendCounter picks the spend counter backend. The memory counter lives
// for the process; redis shares it across instances and restarts.
func newSpendCounter(cfg *config.Config) (spend.Counter, func(), error) {
	if cfg.SpendStore != "redis" {
		return spend.NewMemoryCounter(), func() {}, nil
	}
	client, err := cache.NewGoRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return spend.NewRedisCounter(client, ""), func() { _ = client.Close() }, nil
}

func setupRouter(cfg *config.Config, h *handlers.Handler, jwtService *auth.JWTService) *gin.Engine {
	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.SecurityHeaders())

	if cfg.EnableMetrics {
		router.Use(metrics.PrometheusMiddleware())
		router.GET("/metrics", metrics.PrometheusHandler())
	}

	router.GET("/health", h.Health)

	h.RegisterRoutes(router.Group("/api/v1"),
		middleware.RequireAuth(jwtService),
		middleware.RateLimit(cfg.RateLimitRPM, max(cfg.RateLimitRPM/6, 1)),
	)
	return router
}
