package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	appconfig "chat-admin/config"
	"chat-admin/observability"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const operationChatCompletion = "chat_completion"

var (
	// ErrMissingAPIKey is returned when a completion is requested without a key
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrEmptyCompletion is returned when the provider answers without choices
	ErrEmptyCompletion = errors.New("empty response from provider")
)

// chatClient defines the interface for provider API calls (for testing)
type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// openaiClientWrapper wraps the openai.Client to implement our interface
type openaiClientWrapper struct {
	client openai.Client
}

func (w *openaiClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params, opts...)
}

// ProviderService talks to an OpenAI-compatible chat-completion endpoint.
// The API key is supplied per request because it comes from the store.
type ProviderService struct {
	client   chatClient
	breakers *CircuitBreakerRegistry
	timeout  time.Duration
}

// NewProviderService creates a ProviderService for the configured base URL
func NewProviderService(cfg *appconfig.Config, breakers *CircuitBreakerRegistry) (*ProviderService, error) {
	if cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL is required")
	}

	client := openai.NewClient(
		option.WithBaseURL(normalizeBaseURL(cfg.Provider.BaseURL)),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.ProviderTimeout()}),
	)

	return newProviderServiceWithClient(&openaiClientWrapper{client: client}, breakers, cfg.ProviderTimeout()), nil
}

// newProviderServiceWithClient creates a ProviderService with a custom client (for testing)
func newProviderServiceWithClient(client chatClient, breakers *CircuitBreakerRegistry, timeout time.Duration) *ProviderService {
	if breakers == nil {
		breakers = NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	}
	return &ProviderService{
		client:   client,
		breakers: breakers,
		timeout:  timeout,
	}
}

// normalizeBaseURL makes sure relative request paths resolve under the base path
func normalizeBaseURL(base string) string {
	if !strings.HasSuffix(base, "/") {
		return base + "/"
	}
	return base
}

// Complete sends one user message and returns the first choice. It never retries.
func (s *ProviderService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerChatProvider, operationChatCompletion)
	timer := metrics.NewTimer()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := WithCircuitBreaker(ctx, s.breakers, BreakerChatProvider, func() (*CompletionResult, error) {
		params := openai.ChatCompletionNewParams{
			Model:       shared.ChatModel(req.Model),
			MaxTokens:   openai.Int(int64(req.MaxTokens)),
			Temperature: openai.Float(req.Temperature),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.Content),
			},
		}

		completion, err := s.client.CreateChatCompletion(ctx, params, option.WithAPIKey(req.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to invoke chat provider: %w", err)
		}

		if len(completion.Choices) == 0 {
			return nil, ErrEmptyCompletion
		}
		// A choice without a message object (absent or null) is a malformed reply
		if !completion.Choices[0].JSON.Message.Valid() {
			return nil, ErrEmptyCompletion
		}

		return &CompletionResult{
			Content:     completion.Choices[0].Message.Content,
			TotalTokens: completion.Usage.TotalTokens,
		}, nil
	})

	timer.ObserveExternalAPI(BreakerChatProvider, operationChatCompletion)
	if err != nil {
		metrics.RecordExternalAPIError(BreakerChatProvider, operationChatCompletion, categorizeAPIError(err))
		return nil, err
	}
	return result, nil
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}

	if errors.Is(err, ErrServiceUnavailable) {
		return "circuit_open"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return "empty_response"
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case apiErr.StatusCode >= 500:
			return "server_error"
		default:
			return "client_error"
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "deadline"):
		return "timeout"
	case containsAny(errStr, "connection", "network", "dial"):
		return "connection_error"
	case containsAny(errStr, "unmarshal", "json", "invalid character"):
		return "decode_error"
	default:
		return "unknown"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
