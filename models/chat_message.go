package models

import (
	"time"
)

// DefaultChatModel is used when a message is stored or sent without a model
const DefaultChatModel = "gpt-4o-mini"

type ChatMessage struct {
	ID        int64       `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Tokens    int64       `json:"tokens"`
	Model     string      `json:"model"`
	APIKeyID  *int64      `json:"apiKeyId"`
	CreatedAt time.Time   `json:"createdAt"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// NewChatMessage holds the caller-supplied fields of a message. Zero values
// for Tokens, Model and APIKeyID fall back to the store defaults.
type NewChatMessage struct {
	Role     MessageRole
	Content  string
	Tokens   int64
	Model    string
	APIKeyID *int64
}
