package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/funnel-crm-api/internal/api"
	"github.com/funnel-crm-api/internal/auth"
	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/metrics"
	"github.com/funnel-crm-api/internal/realtime"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/service"
	"github.com/funnel-crm-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var migrateDown = flag.Bool("migrate-down", false, "roll back the most recent migration and exit")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Funnel CRM API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrateDown {
		if err := db.MigrateDown(cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migrations")
		}
		log.Info().Msg("Last migration rolled back")
		return
	}

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	repos := repository.New(db)
	m := metrics.New()
	hub := realtime.NewHub(cfg.Server.AllowedOrigin, m, log)

	services := service.NewServices(repos, service.Deps{
		Tokens:      auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL, cfg.Auth.APIKeyTTL),
		Revocations: revocationStore(cfg, log),
		Notifier:    hub,
		Metrics:     m,
	}, cfg, log)

	// Start background job processor
	go services.Job.StartProcessor(context.Background())
	log.Info().Msg("Background job processor started")

	router := api.NewRouter(services, hub, m, cfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	services.Job.StopProcessor()
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// revocationStore connects to Redis when REDIS_ADDR is set. Without it, or
// when Redis is unreachable, sign-outs are tracked in process memory.
func revocationStore(cfg *config.Config, log zerolog.Logger) auth.RevocationStore {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, using in-memory token revocation")
		return auth.NewMemoryRevocationStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, using in-memory token revocation")
		client.Close()
		return auth.NewMemoryRevocationStore()
	}

	log.Info().Str("addr", cfg.Redis.Addr).Msg("Token revocation backed by Redis")
	return auth.NewRedisRevocationStore(client)
}
