package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-admin/chat"
	"chat-admin/config"
	"chat-admin/models"
	"chat-admin/observability"
	"chat-admin/repository"
	"chat-admin/services"
)

// ErrValidation is returned when a request is missing required fields
var ErrValidation = errors.New("validation failed")

// ChatRelay defines the relay operations needed by App
type ChatRelay interface {
	Send(ctx context.Context, req chat.SendRequest) (*chat.SendResult, error)
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg      *config.Config
	store    repository.Storage
	relay    ChatRelay
	breakers *services.CircuitBreakerRegistry
}

// New creates a new App. breakers may be nil when no provider is wired.
func New(cfg *config.Config, store repository.Storage, relay ChatRelay, breakers *services.CircuitBreakerRegistry) *App {
	return &App{
		cfg:      cfg,
		store:    store,
		relay:    relay,
		breakers: breakers,
	}
}

// Bootstrap seeds the configured admin user unless a user with that name exists
func (a *App) Bootstrap(ctx context.Context) error {
	username := a.cfg.Admin.Username

	_, err := a.store.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		observability.Debug("admin user already present", "username", username)
	case errors.Is(err, repository.ErrNotFound):
		if _, err := a.store.CreateUser(ctx, username, a.cfg.Admin.Password); err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		observability.Info("seeded admin user", "username", username)
	default:
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	a.refreshStoreGauges(ctx)
	return nil
}

// Shutdown releases the store
func (a *App) Shutdown(ctx context.Context) {
	if a.store != nil {
		a.store.Close()
	}
}

// ListAPIKeys returns all keys unmasked; masking is a presentation concern
func (a *App) ListAPIKeys(ctx context.Context) ([]models.APIKey, error) {
	return a.store.GetAPIKeys(ctx)
}

// CreateAPIKey stores a new active key
func (a *App) CreateAPIKey(ctx context.Context, name, key string) (*models.APIKey, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: name and key are required", ErrValidation)
	}

	created, err := a.store.CreateAPIKey(ctx, name, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	observability.WithContext(ctx).Info("api key created", "api_key_id", created.ID, "name", created.Name)
	a.refreshStoreGauges(ctx)
	return created, nil
}

// DeleteAPIKey removes a key. Deleting an unknown id succeeds.
func (a *App) DeleteAPIKey(ctx context.Context, id int64) error {
	removed, err := a.store.DeleteAPIKey(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}

	if removed {
		observability.WithContext(ctx).Info("api key deleted", "api_key_id", id)
		a.refreshStoreGauges(ctx)
	}
	return nil
}

// ChatMessages returns the conversation in chronological order
func (a *App) ChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	return a.store.GetChatMessages(ctx)
}

// SendChat relays one user message
func (a *App) SendChat(ctx context.Context, req chat.SendRequest) (*chat.SendResult, error) {
	if a.relay == nil {
		return nil, fmt.Errorf("chat relay not initialized")
	}

	result, err := a.relay.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	a.refreshStoreGauges(ctx)
	return result, nil
}

// refreshStoreGauges publishes collection sizes to the store gauges
func (a *App) refreshStoreGauges(ctx context.Context) {
	counts, err := a.store.Counts(ctx)
	if err != nil {
		observability.WithError(err).Warn("failed to read store counts")
		return
	}

	metrics := observability.GetMetrics()
	metrics.SetStoreEntities("users", counts.Users)
	metrics.SetStoreEntities("api_keys", counts.APIKeys)
	metrics.SetStoreEntities("chat_messages", counts.ChatMessages)
	metrics.SetStoreEntities("usage_stats", counts.UsageStats)
}
