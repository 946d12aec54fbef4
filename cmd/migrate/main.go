package main

import (
	"context"
	"log"

	"grocery-storefront/internal/config"
	"grocery-storefront/internal/db"
	"grocery-storefront/internal/logging"
	"grocery-storefront/internal/migrate"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New("migrate", cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	version, err := migrate.Apply(ctx, pool, logger)
	if err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}
	logger.Info("schema up to date", zap.Uint("version", version))
}
