package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"chat-admin/models"
)

// MemStorage keeps every collection in process memory. Each collection has
// its own lock; nothing survives a restart.
type MemStorage struct {
	users        *table[models.User]
	apiKeys      *table[models.APIKey]
	chatMessages *table[models.ChatMessage]
	usageStats   *table[models.UsageStats]
	now          func() time.Time
}

// Option configures a MemStorage
type Option func(*MemStorage)

// WithClock overrides the timestamp source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *MemStorage) {
		s.now = now
	}
}

// NewMemStorage creates an empty in-memory store
func NewMemStorage(opts ...Option) *MemStorage {
	s := &MemStorage{
		users:        newTable[models.User](nil),
		apiKeys:      newTable(cloneAPIKey),
		chatMessages: newTable(cloneChatMessage),
		usageStats:   newTable[models.UsageStats](nil),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cloneAPIKey(k models.APIKey) models.APIKey {
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		k.LastUsedAt = &t
	}
	return k
}

func cloneChatMessage(m models.ChatMessage) models.ChatMessage {
	if m.APIKeyID != nil {
		id := *m.APIKeyID
		m.APIKeyID = &id
	}
	return m
}

// Close is a no-op for the in-memory store
func (s *MemStorage) Close() {}

// Health always succeeds for the in-memory store
func (s *MemStorage) Health(ctx context.Context) error {
	return ctx.Err()
}

// Counts returns the size of every collection
func (s *MemStorage) Counts(ctx context.Context) (Counts, error) {
	return Counts{
		Users:        s.users.size(),
		APIKeys:      s.apiKeys.size(),
		ChatMessages: s.chatMessages.size(),
		UsageStats:   s.usageStats.size(),
	}, nil
}

// CreateUser stores a user verbatim. Usernames are not checked for uniqueness.
func (s *MemStorage) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	user := s.users.insert(func(id int64) models.User {
		return models.User{ID: id, Username: username, Password: password}
	})
	return &user, nil
}

func (s *MemStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, ok := s.users.get(id)
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return &user, nil
}

// GetUserByUsername returns the earliest created user with that name
func (s *MemStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := s.users.find(func(u *models.User) bool {
		return u.Username == username
	})
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return &user, nil
}

// CreateAPIKey stores a new active key with no recorded usage
func (s *MemStorage) CreateAPIKey(ctx context.Context, name, key string) (*models.APIKey, error) {
	apiKey := s.apiKeys.insert(func(id int64) models.APIKey {
		return models.APIKey{
			ID:        id,
			Name:      name,
			Key:       key,
			IsActive:  true,
			CreatedAt: s.now(),
		}
	})
	return &apiKey, nil
}

// GetAPIKeys returns all keys in insertion order
func (s *MemStorage) GetAPIKeys(ctx context.Context) ([]models.APIKey, error) {
	return s.apiKeys.list(), nil
}

func (s *MemStorage) GetAPIKey(ctx context.Context, id int64) (*models.APIKey, error) {
	apiKey, ok := s.apiKeys.get(id)
	if !ok {
		return nil, fmt.Errorf("api key %d: %w", id, ErrNotFound)
	}
	return &apiKey, nil
}

// DeleteAPIKey reports whether a key was removed. A missing id is not an error.
func (s *MemStorage) DeleteAPIKey(ctx context.Context, id int64) (bool, error) {
	return s.apiKeys.remove(id), nil
}

// CreateChatMessage stores a message, filling in the default model
func (s *MemStorage) CreateChatMessage(ctx context.Context, msg models.NewChatMessage) (*models.ChatMessage, error) {
	if !msg.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}
	if msg.Tokens < 0 {
		return nil, fmt.Errorf("chat message tokens %d: %w", msg.Tokens, ErrInvalidTokens)
	}

	model := msg.Model
	if model == "" {
		model = models.DefaultChatModel
	}

	var apiKeyID *int64
	if msg.APIKeyID != nil {
		id := *msg.APIKeyID
		apiKeyID = &id
	}

	stored := s.chatMessages.insert(func(id int64) models.ChatMessage {
		return models.ChatMessage{
			ID:        id,
			Role:      msg.Role,
			Content:   msg.Content,
			Tokens:    msg.Tokens,
			Model:     model,
			APIKeyID:  apiKeyID,
			CreatedAt: s.now(),
		}
	})
	return &stored, nil
}

// GetChatMessages returns messages oldest first; equal timestamps keep insertion order
func (s *MemStorage) GetChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	messages := s.chatMessages.list()
	slices.SortStableFunc(messages, func(a, b models.ChatMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return messages, nil
}

// CreateUsageStats appends an entry to the usage log
func (s *MemStorage) CreateUsageStats(ctx context.Context, apiKeyID, tokens int64, requestType models.RequestType) (*models.UsageStats, error) {
	entry := s.usageStats.insert(func(id int64) models.UsageStats {
		return models.UsageStats{
			ID:          id,
			APIKeyID:    apiKeyID,
			Tokens:      tokens,
			RequestType: requestType,
			CreatedAt:   s.now(),
		}
	})
	return &entry, nil
}

// GetUsageStats returns the usage log in insertion order
func (s *MemStorage) GetUsageStats(ctx context.Context) ([]models.UsageStats, error) {
	return s.usageStats.list(), nil
}
