package main

import (
	"context"
	"log"

	"grocery-storefront/internal/config"
	"grocery-storefront/internal/db"
	"grocery-storefront/internal/logging"
	suggestionrepo "grocery-storefront/internal/repository/suggestion"
	"grocery-storefront/internal/seed"
	suggestionsvc "grocery-storefront/internal/service/suggestion"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New("seed", cfg.LogLevel)
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

	svc := suggestionsvc.New(suggestionrepo.NewPostgres(pool, logger))
	n, err := seed.Apply(ctx, svc)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied", zap.Int("terms", n))
}
