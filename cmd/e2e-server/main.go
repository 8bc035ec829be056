// Package main provides a standalone HTTP server for E2E testing.
// It serves the real routes and handlers against an in-process mock
// chat provider, so browser tests need no network access or real keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-admin/chat"
	"chat-admin/config"
	"chat-admin/e2e/mocks"
	"chat-admin/internal/api"
	"chat-admin/internal/app"
	"chat-admin/observability"
	"chat-admin/repository"
	"chat-admin/services"
)

func main() {
	// Initialize logger in development mode for tests
	observability.InitLogger(false)
	observability.InitMetrics()

	port := os.Getenv("E2E_SERVER_PORT")
	if port == "" {
		port = "9090"
	}

	provider := mocks.NewMockServer()
	defer provider.Close()

	cfg := config.NewTestConfig()
	cfg.HTTP.Port = port
	cfg.Provider.BaseURL = provider.BaseURL()

	ctx := context.Background()

	store := repository.NewMemStorage()
	breakers := services.NewCircuitBreakerRegistry(services.CircuitBreakerConfigFrom(cfg.Breaker))

	chatProvider, err := services.NewProviderService(cfg, breakers)
	if err != nil {
		observability.Fatal("failed to initialize chat provider", "error", err)
	}

	application := app.New(cfg, store, chat.NewRelay(store, chatProvider, cfg.Chat), breakers)
	if err := application.Bootstrap(ctx); err != nil {
		observability.Fatal("failed to bootstrap admin account", "error", err)
	}

	// Optional seeded key so chat works without visiting the admin page first
	if key := os.Getenv("E2E_API_KEY"); key != "" {
		if _, err := application.CreateAPIKey(ctx, "e2e", key); err != nil {
			observability.Fatal("failed to seed api key", "error", err)
		}
		observability.Info("seeded api key", "name", "e2e")
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		observability.Info("starting E2E test server", "port", port, "url", fmt.Sprintf("http://localhost:%s", port), "provider", provider.BaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("E2E test server stopped")
}
