package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinova/clinova/internal/app"
	"github.com/clinova/clinova/internal/masterdata/medicines"
	"github.com/clinova/clinova/internal/masterdata/suppliers"
	"github.com/clinova/clinova/internal/observability"
	"github.com/clinova/clinova/internal/platform/db"
	"github.com/clinova/clinova/internal/stockimport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	importRepo := stockimport.NewRepository(pool)
	importSessions := stockimport.NewSessionStore(cfg.ImportSessionTTL)
	importService := stockimport.NewService(importRepo, importSessions, logger)
	importHandler := stockimport.NewHandler(logger, importService, cfg.ImportMaxUploadBytes)

	suppliersRepo := suppliers.NewRepository(pool)
	suppliersService := suppliers.NewService(suppliersRepo)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService)

	medicinesRepo := medicines.NewRepository(pool)
	medicinesService := medicines.NewService(medicinesRepo)
	medicinesHandler := medicines.NewHandler(logger, medicinesService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ImportHandler:    importHandler,
		SuppliersHandler: suppliersHandler,
		MedicinesHandler: medicinesHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
