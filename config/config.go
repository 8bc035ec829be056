package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// HTTP server configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig

	// Chat-completion provider configuration
	Provider ProviderConfig

	// Chat relay configuration
	Chat ChatConfig

	// Seeded admin account
	Admin AdminConfig

	// Circuit breaker around the provider
	Breaker BreakerConfig
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port                  string
	CORSAllowedOrigins    string
	RequestTimeoutSeconds int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Production bool
	Level      string
}

// ProviderConfig holds the OpenAI-compatible provider configuration
type ProviderConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// ChatConfig holds chat relay configuration
type ChatConfig struct {
	DefaultModel        string
	MaxTokens           int
	Temperature         float64
	UsageFallbackTokens int             // charged when the provider omits usage
	CostPerToken        decimal.Decimal // display-only cost estimate
}

// AdminConfig holds the credentials of the seeded admin user
type AdminConfig struct {
	Username string
	Password string
}

// BreakerConfig holds circuit breaker settings for the provider
type BreakerConfig struct {
	MaxRequests     int
	IntervalSeconds int
	TimeoutSeconds  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:                  getEnvString("PORT", "5000"),
			CORSAllowedOrigins:    getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSeconds: getEnvInt("REQUEST_TIMEOUT_SECONDS", 60),
		},
		Log: LogConfig{
			Production: getEnvBool("LOG_PRODUCTION", false),
			Level:      getEnvString("LOG_LEVEL", "info"),
		},
		Provider: ProviderConfig{
			BaseURL:        getEnvString("PROVIDER_BASE_URL", "https://ai.sumopod.com/v1"),
			TimeoutSeconds: getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30),
		},
		Chat: ChatConfig{
			DefaultModel:        getEnvString("CHAT_DEFAULT_MODEL", "gpt-4o-mini"),
			MaxTokens:           getEnvInt("CHAT_MAX_TOKENS", 150),
			Temperature:         getEnvFloatRange("CHAT_TEMPERATURE", 0.7, 0, 2),
			UsageFallbackTokens: getEnvInt("CHAT_USAGE_FALLBACK_TOKENS", 50),
			CostPerToken:        getEnvDecimal("CHAT_COST_PER_TOKEN", decimal.RequireFromString("0.00001")),
		},
		Admin: AdminConfig{
			Username: getEnvString("ADMIN_USERNAME", "admin"),
			Password: getEnvString("ADMIN_PASSWORD", "082254730892"),
		},
		Breaker: BreakerConfig{
			MaxRequests:     getEnvInt("BREAKER_MAX_REQUESTS", 5),
			IntervalSeconds: getEnvInt("BREAKER_INTERVAL_SECONDS", 60),
			TimeoutSeconds:  getEnvInt("BREAKER_TIMEOUT_SECONDS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("PROVIDER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return fmt.Errorf("PROVIDER_BASE_URL must be an http(s) URL, got %q", c.Provider.BaseURL)
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be positive, got %d", c.Provider.TimeoutSeconds)
	}

	if c.Chat.DefaultModel == "" {
		return fmt.Errorf("CHAT_DEFAULT_MODEL is required")
	}
	if c.Chat.MaxTokens <= 0 {
		return fmt.Errorf("CHAT_MAX_TOKENS must be positive, got %d", c.Chat.MaxTokens)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("CHAT_TEMPERATURE must be between 0 and 2, got %.2f", c.Chat.Temperature)
	}
	if c.Chat.UsageFallbackTokens < 0 {
		return fmt.Errorf("CHAT_USAGE_FALLBACK_TOKENS must not be negative, got %d", c.Chat.UsageFallbackTokens)
	}
	if c.Chat.CostPerToken.IsNegative() {
		return fmt.Errorf("CHAT_COST_PER_TOKEN must not be negative, got %s", c.Chat.CostPerToken)
	}

	if c.Admin.Username == "" || c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must not be empty")
	}

	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.RequestTimeoutSeconds)
	}
	if c.Breaker.MaxRequests <= 0 {
		return fmt.Errorf("BREAKER_MAX_REQUESTS must be positive, got %d", c.Breaker.MaxRequests)
	}

	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.HTTP.Port
}

// RequestTimeout returns the per-request deadline applied by the router
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

// ProviderTimeout returns the deadline for a single completion call
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// LogLevel parses the configured level, defaulting to info
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if parsed, err := decimal.NewFromString(val); err == nil && !parsed.IsNegative() {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:                  "5000",
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 60,
		},
		Log: LogConfig{
			Production: false,
			Level:      "info",
		},
		Provider: ProviderConfig{
			BaseURL:        "http://localhost:0/v1",
			TimeoutSeconds: 5,
		},
		Chat: ChatConfig{
			DefaultModel:        "gpt-4o-mini",
			MaxTokens:           150,
			Temperature:         0.7,
			UsageFallbackTokens: 50,
			CostPerToken:        decimal.RequireFromString("0.00001"),
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "admin-password",
		},
		Breaker: BreakerConfig{
			MaxRequests:     5,
			IntervalSeconds: 60,
			TimeoutSeconds:  30,
		},
	}
}
