package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/handler"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if !cfg.APIKeyConfigured() {
		slog.Warn("OPENROUTER_API_KEY is not set, chat requests will fail until it is")
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services
	openRouter := service.NewOpenRouterService(cfg.OpenRouterKey, cfg.BaseURL, cfg.Model)
	limiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute, config.RateLimitBurst, config.RateLimiterTTL)

	h := handler.New(handler.Deps{
		Cfg:        cfg,
		OpenRouter: openRouter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(limiter),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting relay", "addr", srv.Addr, "model", cfg.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("relay stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("relay shutdown", "error", err)
	}
	slog.Info("relay stopped gracefully")
}
