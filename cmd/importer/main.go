package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"grocery-storefront/internal/config"
	"grocery-storefront/internal/db"
	"grocery-storefront/internal/importer"
	"grocery-storefront/internal/logging"
	suggestionrepo "grocery-storefront/internal/repository/suggestion"
	suggestionsvc "grocery-storefront/internal/service/suggestion"

	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a term,weight CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger, err := logging.New("importer", cfg.LogLevel)
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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.String("file", filePath), zap.Error(err))
	}
	defer f.Close()

	svc := suggestionsvc.New(suggestionrepo.NewPostgres(pool, logger))
	imp := importer.NewCSVImporter(f, svc)

	start := time.Now()
	sum, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", sum.Imported), zap.Error(err))
	}

	fmt.Printf("Imported %d terms (%d blank rows skipped) in %s\n", sum.Imported, sum.Skipped, time.Since(start).Truncate(time.Millisecond))
}
