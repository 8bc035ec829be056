//go:build e2e
// +build e2e

package scenarios

import (
	"net/http"
	"strconv"
	"testing"

	"chat-admin/e2e"
	"chat-admin/internal/api"
	"chat-admin/internal/app"
	"chat-admin/models"
)

func newHarness(t *testing.T) *e2e.TestHarness {
	t.Helper()

	harness := e2e.NewTestHarness(t)
	if err := harness.Setup(); err != nil {
		t.Fatalf("failed to setup test harness: %v", err)
	}
	t.Cleanup(harness.Teardown)
	return harness
}

func TestChatFlow_Login(t *testing.T) {
	harness := newHarness(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"seeded admin", `{"username":"admin","password":"admin-password"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"username":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := harness.DoRequest(http.MethodPost, "/api/admin/login", tt.body)
			if resp.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestChatFlow_SendRecordsUsage(t *testing.T) {
	harness := newHarness(t)
	id := harness.AddAPIKey("k1", "sk-abc")

	resp := harness.DoRequest(http.MethodPost, "/api/chat/send", `{"message":"Hello"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var sent api.SendMessageResponse
	harness.DecodeJSON(resp, &sent)

	if sent.Error != "" {
		t.Errorf("unexpected error field: %s", sent.Error)
	}
	if sent.AIMessage == nil || sent.AIMessage.Content != "Hello! How can I help you today?" {
		t.Fatalf("unexpected assistant message: %+v", sent.AIMessage)
	}
	if sent.TokensUsed != 42 {
		t.Errorf("expected 42 tokens, got %d", sent.TokensUsed)
	}

	key, err := harness.Store().GetAPIKey(harness.Context(), id)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}
	if key.TokensUsed != 42 {
		t.Errorf("expected key usage 42, got %d", key.TokensUsed)
	}
	if key.LastUsedAt == nil {
		t.Error("expected lastUsedAt to be set")
	}

	log := harness.MockServer().GetRequestLog()
	if len(log) != 1 {
		t.Fatalf("expected 1 provider request, got %d", len(log))
	}
	got := log[0]
	if got.Authorization != "Bearer sk-abc" {
		t.Errorf("unexpected Authorization header: %q", got.Authorization)
	}
	if got.Body.MaxTokens != 150 || got.Body.Temperature != 0.7 {
		t.Errorf("unexpected sampling params: %+v", got.Body)
	}
	if got.Body.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", got.Body.Model)
	}
	if len(got.Body.Messages) != 1 || got.Body.Messages[0].Content != "Hello" {
		t.Errorf("expected only the current message to be sent, got %+v", got.Body.Messages)
	}

	resp = harness.DoRequest(http.MethodGet, "/api/chat/messages", "")
	var messages []models.ChatMessage
	harness.DecodeJSON(resp, &messages)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[1].Role != models.RoleAssistant {
		t.Errorf("unexpected message order: %s, %s", messages[0].Role, messages[1].Role)
	}
}

func TestChatFlow_NoActiveKey(t *testing.T) {
	harness := newHarness(t)

	resp := harness.DoRequest(http.MethodPost, "/api/chat/send", `{"message":"Hello"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.Code)
	}
	if n := len(harness.MockServer().GetRequestLog()); n != 0 {
		t.Errorf("provider should not be called, got %d requests", n)
	}
}

func TestChatFlow_ProviderFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *e2e.TestHarness)
	}{
		{"server error", func(h *e2e.TestHarness) { h.MockServer().SetError(http.StatusInternalServerError, "boom") }},
		{"rate limited", func(h *e2e.TestHarness) { h.MockServer().SetError(http.StatusTooManyRequests, "slow down") }},
		{"malformed body", func(h *e2e.TestHarness) { h.MockServer().SetMalformed(true) }},
		{"empty choices", func(h *e2e.TestHarness) { h.MockServer().SetEmptyChoices(true) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			harness := newHarness(t)
			id := harness.AddAPIKey("k1", "sk-abc")
			tt.setup(harness)

			resp := harness.DoRequest(http.MethodPost, "/api/chat/send", `{"message":"Hello"}`)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200 with fallback, got %d", resp.Code)
			}

			var sent api.SendMessageResponse
			harness.DecodeJSON(resp, &sent)
			if sent.Error != "API connection failed" {
				t.Errorf("expected error field, got %q", sent.Error)
			}
			if sent.AIMessage == nil || sent.AIMessage.Tokens != 0 {
				t.Errorf("expected a zero-token fallback reply, got %+v", sent.AIMessage)
			}

			key, err := harness.Store().GetAPIKey(harness.Context(), id)
			if err != nil {
				t.Fatalf("failed to load key: %v", err)
			}
			if key.TokensUsed != 0 {
				t.Errorf("failed calls must not be charged, got %d", key.TokensUsed)
			}
		})
	}
}

func TestChatFlow_MissingUsageChargesFallback(t *testing.T) {
	harness := newHarness(t)
	id := harness.AddAPIKey("k1", "sk-abc")
	harness.MockServer().SetReply("short answer", -1)

	resp := harness.DoRequest(http.MethodPost, "/api/chat/send", `{"message":"Hello"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var sent api.SendMessageResponse
	harness.DecodeJSON(resp, &sent)
	if sent.TokensUsed != 50 {
		t.Errorf("expected fallback of 50 tokens, got %d", sent.TokensUsed)
	}

	key, _ := harness.Store().GetAPIKey(harness.Context(), id)
	if key == nil || key.TokensUsed != 50 {
		t.Errorf("expected key usage 50, got %+v", key)
	}
}

func TestChatFlow_Stats(t *testing.T) {
	harness := newHarness(t)
	harness.AddAPIKey("k1", "sk-abc")
	harness.MockServer().SetReply("hi", 100)

	for i := 0; i < 2; i++ {
		if resp := harness.DoRequest(http.MethodPost, "/api/chat/send", `{"message":"ping"}`); resp.Code != http.StatusOK {
			t.Fatalf("send %d failed: %d", i, resp.Code)
		}
	}

	resp := harness.DoRequest(http.MethodGet, "/api/admin/stats", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var stats app.Stats
	harness.DecodeJSON(resp, &stats)

	if stats.TotalAPIKeys != 1 {
		t.Errorf("expected 1 key, got %d", stats.TotalAPIKeys)
	}
	if stats.TotalTokens != 200 {
		t.Errorf("expected 200 tokens, got %d", stats.TotalTokens)
	}
	if stats.TotalRequests != 4 {
		t.Errorf("expected 4 stored messages, got %d", stats.TotalRequests)
	}
	if stats.EstimatedCost.String() != "0.002" {
		t.Errorf("expected cost 0.002, got %s", stats.EstimatedCost)
	}
	if stats.ActiveAPIKey != "k1" {
		t.Errorf("expected active key k1, got %s", stats.ActiveAPIKey)
	}
	if len(stats.RecentActivity) != 2 {
		t.Errorf("expected 2 usage records, got %d", len(stats.RecentActivity))
	}
}

func TestChatFlow_DeletedKeyPromotesNext(t *testing.T) {
	harness := newHarness(t)
	first := harness.AddAPIKey("k1", "sk-first")
	harness.AddAPIKey("k2", "sk-second")

	if resp := harness.DoRequest(http.MethodDelete, "/api/admin/api-keys/"+strconv.FormatInt(first, 10), ""); resp.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", resp.Code)
	}

	if resp := harness.DoRequest(http.MethodPost, "/api/chat/send", `{"message":"Hello"}`); resp.Code != http.StatusOK {
		t.Fatalf("send failed: %d", resp.Code)
	}

	log := harness.MockServer().GetRequestLog()
	if len(log) != 1 || log[0].Authorization != "Bearer sk-second" {
		t.Errorf("expected the second key to be used, got %+v", log)
	}
}
