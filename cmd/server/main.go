// Package main runs the chat-admin HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-admin/chat"
	"chat-admin/config"
	"chat-admin/internal/api"
	"chat-admin/internal/app"
	"chat-admin/observability"
	"chat-admin/repository"
	"chat-admin/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, cfg.LogLevel())
	observability.InitMetrics()

	store := repository.NewMemStorage()
	breakers := services.NewCircuitBreakerRegistry(services.CircuitBreakerConfigFrom(cfg.Breaker))

	provider, err := services.NewProviderService(cfg, breakers)
	if err != nil {
		observability.Fatal("failed to initialize chat provider", "error", err)
	}

	relay := chat.NewRelay(store, provider, cfg.Chat)
	application := app.New(cfg, store, relay, breakers)

	ctx := context.Background()
	if err := application.Bootstrap(ctx); err != nil {
		observability.Fatal("failed to bootstrap admin account", "error", err)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	// WriteTimeout sits above the router deadline so timed-out requests still get a response
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 5*time.Second,
	}

	go func() {
		observability.Info("starting server", "addr", cfg.Addr(), "provider", cfg.Provider.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}
