package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"grocery-storefront/internal/config"
	"grocery-storefront/internal/db"
	"grocery-storefront/internal/httpserver"
	"grocery-storefront/internal/logging"
	"grocery-storefront/internal/migrate"
	suggestionrepo "grocery-storefront/internal/repository/suggestion"
	suggestionsvc "grocery-storefront/internal/service/suggestion"
	"grocery-storefront/internal/session"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New("api", cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	if _, err := migrate.Apply(ctx, dbpool, logger); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	suggestionService := suggestionsvc.New(suggestionrepo.NewPostgres(dbpool, logger))

	sessions := session.NewManager(session.Config{
		BackendURL:     cfg.BackendURL,
		RequestTimeout: cfg.RequestTimeout,
		SearchDebounce: cfg.SearchDebounce,
		SearchPageSize: cfg.SearchPageSize,
		DiscardStale:   cfg.DiscardStale,
		IdleTimeout:    cfg.SessionIdle,
	}, session.WithLogger(logger.Named("session")), session.WithRecorder(suggestionService))

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		sessions.Run(sweepCtx)
		close(sweepDone)
	}()

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:    sessions,
		Suggestions: suggestionService,
	}, cfg.CORSOrigins)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	stopSweep()
	<-sweepDone
}
