package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-admin/config"
	"chat-admin/models"
	"chat-admin/observability"
	"chat-admin/services"

	"github.com/shopspring/decimal"
)

const (
	// FallbackMessage is stored as the assistant reply when the provider call fails
	FallbackMessage = "I'm sorry, I'm having trouble connecting to the AI service right now. Please try again later."

	// ProviderErrorText is reported to the caller alongside the fallback reply
	ProviderErrorText = "API connection failed"
)

var (
	// ErrInvalidRequest is returned for an empty or whitespace-only message
	ErrInvalidRequest = errors.New("message is required")

	// ErrNoActiveKey is returned when no stored API key is active
	ErrNoActiveKey = errors.New("no active API key available")
)

// RelayStore defines the store operations needed by Relay
type RelayStore interface {
	GetAPIKeys(ctx context.Context) ([]models.APIKey, error)
	CreateChatMessage(ctx context.Context, msg models.NewChatMessage) (*models.ChatMessage, error)
	UpdateAPIKeyUsage(ctx context.Context, id, tokens int64) (bool, error)
	CreateUsageStats(ctx context.Context, apiKeyID, tokens int64, requestType models.RequestType) (*models.UsageStats, error)
}

// SendRequest is one user turn. An empty Model uses the configured default.
type SendRequest struct {
	Message string
	Model   string
}

// SendResult is the outcome of a relay round trip. Error is set only when the
// provider failed and the fallback reply was stored instead.
type SendResult struct {
	UserMessage      *models.ChatMessage
	AssistantMessage *models.ChatMessage
	TokensUsed       int64
	EstimatedCost    decimal.Decimal
	Error            string
}

// Relay forwards user messages to the provider using the first active key
// and records the exchange and its token usage.
type Relay struct {
	store    RelayStore
	provider services.CompletionProvider
	cfg      config.ChatConfig
}

// NewRelay creates a new Relay
func NewRelay(store RelayStore, provider services.CompletionProvider, cfg config.ChatConfig) *Relay {
	return &Relay{
		store:    store,
		provider: provider,
		cfg:      cfg,
	}
}

// ActiveKey returns the key the next Send would use, or nil when none is active
func (r *Relay) ActiveKey(ctx context.Context) (*models.APIKey, error) {
	keys, err := r.store.GetAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return models.FirstActive(keys), nil
}

// Send performs a single completion round trip. Provider failures are not
// returned as errors; they produce the fallback reply with Error set.
func (r *Relay) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	log := observability.WithContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		timer.ObserveChat(observability.ChatOutcomeRejected)
		return nil, ErrInvalidRequest
	}

	key, err := r.ActiveKey(ctx)
	if err != nil {
		return r.fail(timer, err)
	}
	if key == nil {
		timer.ObserveChat(observability.ChatOutcomeRejected)
		log.Warn("chat send rejected, no active api key")
		return nil, ErrNoActiveKey
	}

	model := req.Model
	if model == "" {
		model = r.cfg.DefaultModel
	}
	keyID := key.ID

	userMsg, err := r.store.CreateChatMessage(ctx, models.NewChatMessage{
		Role:     models.RoleUser,
		Content:  req.Message,
		Model:    model,
		APIKeyID: &keyID,
	})
	if err != nil {
		return r.fail(timer, fmt.Errorf("failed to store user message: %w", err))
	}

	completion, err := r.provider.Complete(ctx, services.CompletionRequest{
		APIKey:      key.Key,
		Model:       model,
		Content:     req.Message,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		log.Warn("chat provider call failed, storing fallback reply",
			"api_key_id", keyID,
			"model", model,
			"error", err)
		return r.fallback(ctx, timer, userMsg, model, keyID)
	}

	tokens := completion.TotalTokens
	if tokens <= 0 {
		tokens = int64(r.cfg.UsageFallbackTokens)
	}

	assistantMsg, err := r.store.CreateChatMessage(ctx, models.NewChatMessage{
		Role:     models.RoleAssistant,
		Content:  completion.Content,
		Tokens:   tokens,
		Model:    model,
		APIKeyID: &keyID,
	})
	if err != nil {
		return r.fail(timer, fmt.Errorf("failed to store assistant message: %w", err))
	}

	updated, err := r.store.UpdateAPIKeyUsage(ctx, keyID, tokens)
	if err != nil {
		return r.fail(timer, fmt.Errorf("failed to update api key usage: %w", err))
	}
	if !updated {
		log.Warn("api key removed during chat, usage not added to key", "api_key_id", keyID)
	}
	if _, err := r.store.CreateUsageStats(ctx, keyID, tokens, models.RequestTypeChatCompletion); err != nil {
		return r.fail(timer, fmt.Errorf("failed to record usage: %w", err))
	}

	metrics.RecordTokens(model, tokens)
	timer.ObserveChat(observability.ChatOutcomeSuccess)
	log.Info("chat completion relayed",
		"api_key_id", keyID,
		"model", model,
		"tokens", tokens)

	return &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		TokensUsed:       tokens,
		EstimatedCost:    models.EstimateCost(tokens, r.cfg.CostPerToken),
	}, nil
}

// fallback stores the canned reply; no usage is charged
func (r *Relay) fallback(ctx context.Context, timer *observability.Timer, userMsg *models.ChatMessage, model string, keyID int64) (*SendResult, error) {
	assistantMsg, err := r.store.CreateChatMessage(ctx, models.NewChatMessage{
		Role:     models.RoleAssistant,
		Content:  FallbackMessage,
		Model:    model,
		APIKeyID: &keyID,
	})
	if err != nil {
		return r.fail(timer, fmt.Errorf("failed to store fallback message: %w", err))
	}

	timer.ObserveChat(observability.ChatOutcomeFallback)
	return &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		EstimatedCost:    decimal.Zero,
		Error:            ProviderErrorText,
	}, nil
}

// fail records an internal error outcome and passes err through
func (r *Relay) fail(timer *observability.Timer, err error) (*SendResult, error) {
	timer.ObserveChat(observability.ChatOutcomeError)
	return nil, err
}
