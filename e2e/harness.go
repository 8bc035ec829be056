// Package e2e provides end-to-end testing infrastructure for chat-admin.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-admin/chat"
	"chat-admin/config"
	"chat-admin/e2e/mocks"
	"chat-admin/internal/api"
	"chat-admin/internal/app"
	"chat-admin/repository"
	"chat-admin/services"
)

// TestHarness wires the full stack over an in-memory store and a mock provider.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	store      *repository.MemStorage
	breakers   *services.CircuitBreakerRegistry
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness. Call Setup before use.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies.
func (h *TestHarness) Setup() error {
	h.mockServer = mocks.NewMockServer()
	h.config = h.createTestConfig()

	h.store = repository.NewMemStorage()
	h.breakers = services.NewCircuitBreakerRegistry(services.CircuitBreakerConfigFrom(h.config.Breaker))

	provider, err := services.NewProviderService(h.config, h.breakers)
	if err != nil {
		return fmt.Errorf("failed to create provider service: %w", err)
	}

	relay := chat.NewRelay(h.store, provider, h.config.Chat)
	h.app = app.New(h.config, h.store, relay, h.breakers)
	if err := h.app.Bootstrap(h.ctx); err != nil {
		return fmt.Errorf("failed to bootstrap app: %w", err)
	}

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}

	if h.app != nil {
		h.app.Shutdown(context.Background())
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock provider for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Store returns the in-memory store.
func (h *TestHarness) Store() *repository.MemStorage {
	return h.store
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DecodeJSON decodes a response body into v, failing the test on error.
func (h *TestHarness) DecodeJSON(w *httptest.ResponseRecorder, v any) {
	h.t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		h.t.Fatalf("failed to decode response: %v", err)
	}
}

// AddAPIKey registers a key through the admin API and returns its id.
func (h *TestHarness) AddAPIKey(name, key string) int64 {
	h.t.Helper()

	w := h.DoRequest(http.MethodPost, "/api/admin/api-keys", fmt.Sprintf(`{"name":%q,"key":%q}`, name, key))
	if w.Code != http.StatusOK {
		h.t.Fatalf("failed to add api key: status %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		ID int64 `json:"id"`
	}
	h.DecodeJSON(w, &created)
	return created.ID
}

// ResetStore replaces the store contents with a freshly bootstrapped one.
func (h *TestHarness) ResetStore() error {
	h.Teardown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	h.ctx, h.cancel = ctx, cancel
	return h.Setup()
}

func (h *TestHarness) createTestConfig() *config.Config {
	cfg := config.NewTestConfig()
	cfg.Provider.BaseURL = h.mockServer.BaseURL()
	cfg.Provider.TimeoutSeconds = 2
	return cfg
}
