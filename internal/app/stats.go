package app

import (
	"context"
	"fmt"

	"chat-admin/models"
	"chat-admin/observability"
	"chat-admin/services"

	"github.com/shopspring/decimal"
)

const (
	recentActivityLimit = 10
	noActiveKeyName     = "None"
)

// Stats is the admin dashboard summary
type Stats struct {
	TotalAPIKeys   int                    `json:"totalApiKeys"`
	TotalTokens    int64                  `json:"totalTokens"`
	TotalRequests  int64                  `json:"totalRequests"`
	EstimatedCost  decimal.Decimal        `json:"estimatedCost"`
	ActiveAPIKey   string                 `json:"activeApiKey"`
	APIKeys        []models.APIKeySummary `json:"apiKeys"`
	RecentActivity []models.UsageStats    `json:"recentActivity"`
}

// Stats aggregates key usage and the most recent usage log entries
func (a *App) Stats(ctx context.Context) (*Stats, error) {
	keys, err := a.store.GetAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	totalTokens, err := a.store.GetTotalTokensUsed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum token usage: %w", err)
	}
	totalRequests, err := a.store.GetTotalRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	usage, err := a.store.GetUsageStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage log: %w", err)
	}

	summaries := make([]models.APIKeySummary, 0, len(keys))
	for i := range keys {
		summaries = append(summaries, keys[i].Summary())
	}

	active := noActiveKeyName
	if key := models.FirstActive(keys); key != nil {
		active = key.Name
	}

	return &Stats{
		TotalAPIKeys:   len(keys),
		TotalTokens:    totalTokens,
		TotalRequests:  totalRequests,
		EstimatedCost:  models.EstimateCost(totalTokens, a.cfg.Chat.CostPerToken),
		ActiveAPIKey:   active,
		APIKeys:        summaries,
		RecentActivity: models.RecentUsage(usage, recentActivityLimit),
	}, nil
}

// Service health values
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthStatus is reported by the health endpoint
type HealthStatus struct {
	Status          string                                   `json:"status"`
	Services        map[string]string                        `json:"services"`
	CircuitBreakers map[string]services.CircuitBreakerStatus `json:"circuit_breakers"`
}

// Health checks the store and the provider circuit breaker
func (a *App) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:          HealthOK,
		Services:        map[string]string{"store": "ok", "provider": "not_configured"},
		CircuitBreakers: map[string]services.CircuitBreakerStatus{},
	}

	if err := a.store.Health(ctx); err != nil {
		observability.WithError(err).Warn("store health check failed")
		status.Services["store"] = "unavailable"
		status.Status = HealthDegraded
	}

	if a.breakers != nil {
		status.Services["provider"] = "ok"
		status.CircuitBreakers = a.breakers.Status()
		for _, cb := range status.CircuitBreakers {
			if cb.State == "open" {
				status.Services["provider"] = "circuit_open"
				status.Status = HealthDegraded
				break
			}
		}
	}

	return status
}
