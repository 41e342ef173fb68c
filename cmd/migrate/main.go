package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/plantops/engine/internal/repository"
	"github.com/plantops/engine/pkg/config"
	"github.com/plantops/engine/pkg/database"
	"github.com/plantops/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(context.Background(), database.Options{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		Debug:  cfg.LogLevel == "debug",
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
