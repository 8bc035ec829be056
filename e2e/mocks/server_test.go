package mocks

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func postCompletion(t *testing.T, m *MockServer, auth string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, m.URL()+CompletionPath,
		strings.NewReader(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"Hello"}],"max_tokens":150,"temperature":0.7}`))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestMockServer_DefaultReply(t *testing.T) {
	m := NewMockServer()
	defer m.Close()

	resp := postCompletion(t, m, "Bearer sk-test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Choices) != 1 || body.Usage == nil || body.Usage.TotalTokens != 42 {
		t.Errorf("unexpected response: %+v", body)
	}

	log := m.GetRequestLog()
	if len(log) != 1 {
		t.Fatalf("expected 1 logged request, got %d", len(log))
	}
	if log[0].Authorization != "Bearer sk-test" || log[0].Body.MaxTokens != 150 {
		t.Errorf("unexpected log entry: %+v", log[0])
	}
}

func TestMockServer_RequiresBearer(t *testing.T) {
	m := NewMockServer()
	defer m.Close()

	if resp := postCompletion(t, m, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMockServer_ErrorInjection(t *testing.T) {
	m := NewMockServer()
	defer m.Close()

	m.SetError(http.StatusServiceUnavailable, "down")
	if resp := postCompletion(t, m, "Bearer sk"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}

	m.Reset()
	if resp := postCompletion(t, m, "Bearer sk"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after reset, got %d", resp.StatusCode)
	}
	if len(m.GetRequestLog()) != 1 {
		t.Error("Reset should clear the request log")
	}
}

func TestMockServer_OmittedUsage(t *testing.T) {
	m := NewMockServer()
	defer m.Close()

	m.SetReply("no usage here", -1)
	resp := postCompletion(t, m, "Bearer sk")

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if _, ok := raw["usage"]; ok {
		t.Error("usage should be omitted")
	}
}
