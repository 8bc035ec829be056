// Package mocks provides an HTTP mock of the OpenAI-compatible chat provider for E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// CompletionPath is the provider endpoint relative to the base URL
const CompletionPath = "/v1/chat/completions"

// MockServer provides configurable chat completion responses.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configuration
	replyContent string
	usage        *ChatUsage
	emptyChoices bool
	malformed    bool
	delay        time.Duration

	// Error injection
	errorStatus  int
	errorMessage string

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method        string
	Path          string
	Authorization string
	Body          ChatCompletionRequest
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's root URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// BaseURL returns the provider base URL to configure the relay with.
func (m *MockServer) BaseURL() string {
	return m.server.URL + "/v1"
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body ChatCompletionRequest
	if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	m.mu.Unlock()

	if r.Method != http.MethodPost || r.URL.Path != CompletionPath {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		m.writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	m.handleChatCompletion(w, body)
}

func (m *MockServer) handleChatCompletion(w http.ResponseWriter, req ChatCompletionRequest) {
	m.mu.RLock()
	delay := m.delay
	errorStatus := m.errorStatus
	errorMessage := m.errorMessage
	malformed := m.malformed
	emptyChoices := m.emptyChoices
	content := m.replyContent
	usage := m.usage
	m.mu.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if errorStatus != 0 {
		m.writeError(w, errorStatus, errorMessage)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if malformed {
		_, _ = w.Write([]byte(`{"choices": [`))
		return
	}

	resp := ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []ChatChoice{},
		Usage:   usage,
	}
	if !emptyChoices {
		resp.Choices = append(resp.Choices, ChatChoice{
			Index:        0,
			FinishReason: "stop",
			Message:      ChatMessage{Role: "assistant", Content: content},
		})
	}

	json.NewEncoder(w).Encode(resp)
}

func (m *MockServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorBody{Message: message, Type: "mock_error"}})
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetReply configures the assistant content and the reported total tokens.
// totalTokens < 0 omits the usage block entirely.
func (m *MockServer) SetReply(content string, totalTokens int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyContent = content
	if totalTokens < 0 {
		m.usage = nil
		return
	}
	m.usage = &ChatUsage{
		PromptTokens:     totalTokens / 2,
		CompletionTokens: totalTokens - totalTokens/2,
		TotalTokens:      totalTokens,
	}
}

// SetError makes every completion fail with the given HTTP status.
func (m *MockServer) SetError(status int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorStatus = status
	m.errorMessage = message
}

// SetMalformed makes the provider answer with a truncated JSON body.
func (m *MockServer) SetMalformed(malformed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed = malformed
}

// SetEmptyChoices makes the provider answer without any choices.
func (m *MockServer) SetEmptyChoices(empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emptyChoices = empty
}

// SetDelay holds every response for d before answering.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Reset restores the default responses and clears the request log.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setDefaults()
	m.requestLog = make([]RequestLog, 0)
}

func (m *MockServer) setDefaults() {
	m.replyContent = "Hello! How can I help you today?"
	m.usage = &ChatUsage{PromptTokens: 10, CompletionTokens: 32, TotalTokens: 42}
	m.emptyChoices = false
	m.malformed = false
	m.delay = 0
	m.errorStatus = 0
	m.errorMessage = ""
}
