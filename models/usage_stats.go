package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageStats is one entry of the append-only token consumption log
type UsageStats struct {
	ID          int64       `json:"id"`
	APIKeyID    int64       `json:"apiKeyId"`
	Tokens      int64       `json:"tokens"`
	RequestType RequestType `json:"requestType"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type RequestType string

const (
	RequestTypeChatCompletion RequestType = "chat_completion"
)

// RecentUsage returns the last n entries of log, newest first
func RecentUsage(log []UsageStats, n int) []UsageStats {
	if n > len(log) {
		n = len(log)
	}
	out := make([]UsageStats, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, log[i])
	}
	return out
}

// EstimateCost converts a token count into a display cost at the given per-token rate
func EstimateCost(tokens int64, ratePerToken decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(tokens).Mul(ratePerToken)
}
