package repository

import (
	"context"
	"fmt"

	"chat-admin/models"
)

// UpdateAPIKeyUsage adds tokens to the key's counter and stamps lastUsedAt.
// It reports false and changes nothing when the key does not exist.
func (s *MemStorage) UpdateAPIKeyUsage(ctx context.Context, id, tokens int64) (bool, error) {
	if tokens < 0 {
		return false, fmt.Errorf("usage delta %d: %w", tokens, ErrInvalidTokens)
	}

	now := s.now()
	updated := s.apiKeys.update(id, func(k *models.APIKey) {
		k.TokensUsed += tokens
		k.LastUsedAt = &now
	})
	return updated, nil
}

// GetTotalTokensUsed sums the cumulative counters of the stored keys. Deleted
// keys no longer contribute.
func (s *MemStorage) GetTotalTokensUsed(ctx context.Context) (int64, error) {
	var total int64
	s.apiKeys.each(func(k *models.APIKey) {
		total += k.TokensUsed
	})
	return total, nil
}

// GetTotalRequests counts stored chat messages of both roles
func (s *MemStorage) GetTotalRequests(ctx context.Context) (int64, error) {
	return int64(s.chatMessages.size()), nil
}
