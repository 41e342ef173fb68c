package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/engine/internal/api"
	"github.com/plantops/engine/internal/editor"
	"github.com/plantops/engine/internal/repository"
	"github.com/plantops/engine/internal/services"
	"github.com/plantops/engine/internal/simulation"
	"github.com/plantops/engine/pkg/config"
	"github.com/plantops/engine/pkg/database"
	"github.com/plantops/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting logic diagram engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.Duration("tick", cfg.SimTickInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Open(ctx, database.Options{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		Debug:  cfg.LogLevel == "debug",
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get sql handle", zap.Error(err))
	}
	defer sqlDB.Close()
	log.Info("Database ready", zap.String("driver", cfg.DatabaseDriver))

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, every caller is an anonymous viewer without edit rights")
	}

	// Sessions outlive requests; they stop when the process does.
	sessions := simulation.NewRegistry(ctx, cfg.SimTickInterval)
	defer sessions.Shutdown()

	router := api.NewRouter(api.Dependencies{
		HMACSecret:     []byte(cfg.JWTSecret),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		DB:             sqlDB,
		Diagrams:       services.NewDiagramService(services.NewGormGateway(db), sessions),
		Sessions:       sessions,
		Editor:         editor.New(editor.NewRoleSet(cfg.EditorRoles)),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
