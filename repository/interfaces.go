package repository

import (
	"context"
	"errors"

	"chat-admin/models"
)

var (
	// ErrNotFound is returned by getters when no entity has the requested key
	ErrNotFound = errors.New("not found")

	// ErrInvalidTokens is returned for negative token counts or deltas
	ErrInvalidTokens = errors.New("token count must not be negative")

	// ErrInvalidRole is returned when a chat message has an unknown role
	ErrInvalidRole = errors.New("invalid message role")
)

// Storage defines all entity store and usage accounting operations
type Storage interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error
	Counts(ctx context.Context) (Counts, error)

	// Users
	CreateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// API keys
	CreateAPIKey(ctx context.Context, name, key string) (*models.APIKey, error)
	GetAPIKeys(ctx context.Context) ([]models.APIKey, error)
	GetAPIKey(ctx context.Context, id int64) (*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id int64) (bool, error)

	// Chat messages
	CreateChatMessage(ctx context.Context, msg models.NewChatMessage) (*models.ChatMessage, error)
	GetChatMessages(ctx context.Context) ([]models.ChatMessage, error)

	// Usage log and accounting
	CreateUsageStats(ctx context.Context, apiKeyID, tokens int64, requestType models.RequestType) (*models.UsageStats, error)
	GetUsageStats(ctx context.Context) ([]models.UsageStats, error)
	UpdateAPIKeyUsage(ctx context.Context, id, tokens int64) (bool, error)
	GetTotalTokensUsed(ctx context.Context) (int64, error)
	GetTotalRequests(ctx context.Context) (int64, error)
}

// Counts holds the number of stored entities per collection
type Counts struct {
	Users        int
	APIKeys      int
	ChatMessages int
	UsageStats   int
}

// Compile-time interface verification
var _ Storage = (*MemStorage)(nil)
