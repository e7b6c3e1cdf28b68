package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"icmm/internal/core"
	"icmm/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := core.LoadEnvFile(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := core.SetDefaultLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := core.Bootstrap(ctx, cfg, logger, "server")
	if err != nil {
		logger.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Shutdown cleanup failed", "error", err)
		}
	}()

	// No WriteTimeout: /assessments/stream holds its response open.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(app.Assessor, app.Store).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
			_ = srv.Close()
		}
	}()

	logger.Info("Listening", "addr", cfg.HTTPAddr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server closed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server closed")
}
