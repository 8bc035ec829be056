package models

import (
	"time"
)

// APIKey is a stored credential for the chat-completion provider
type APIKey struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	IsActive   bool       `json:"isActive"`
	TokensUsed int64      `json:"tokensUsed"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

// APIKeySummary is the per-key view shown on the admin stats page
type APIKeySummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TokensUsed int64  `json:"tokensUsed"`
	IsActive   bool   `json:"isActive"`
}

func (k *APIKey) Summary() APIKeySummary {
	return APIKeySummary{
		ID:         k.ID,
		Name:       k.Name,
		TokensUsed: k.TokensUsed,
		IsActive:   k.IsActive,
	}
}

// Masked returns a copy with the secret reduced to its first 10 and last 4 characters
func (k APIKey) Masked() APIKey {
	k.Key = MaskSecret(k.Key)
	return k
}

// MaskSecret renders a secret as first10***last4. Short secrets overlap, so
// "sk-abc" becomes "sk-abc***-abc".
func MaskSecret(secret string) string {
	runes := []rune(secret)
	head := runes
	if len(head) > 10 {
		head = head[:10]
	}
	tail := runes
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return string(head) + "***" + string(tail)
}

// FirstActive returns the first active key in slice order, or nil
func FirstActive(keys []APIKey) *APIKey {
	for i := range keys {
		if keys[i].IsActive {
			return &keys[i]
		}
	}
	return nil
}
