package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.ChatRequestsTotal == nil {
		t.Error("ChatRequestsTotal is nil")
	}
	if m.ChatDuration == nil {
		t.Error("ChatDuration is nil")
	}
	if m.TokensConsumedTotal == nil {
		t.Error("TokensConsumedTotal is nil")
	}
	if m.LoginAttemptsTotal == nil {
		t.Error("LoginAttemptsTotal is nil")
	}
	if m.StoreEntities == nil {
		t.Error("StoreEntities is nil")
	}
	if m.ExternalAPIRequestsTotal == nil {
		t.Error("ExternalAPIRequestsTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
}

func TestRecordChat(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordChat(ChatOutcomeSuccess, 100*time.Millisecond)
	m.RecordChat(ChatOutcomeSuccess, 200*time.Millisecond)
	m.RecordChat(ChatOutcomeFallback, 50*time.Millisecond)

	if got := testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues(ChatOutcomeSuccess)); got != 2 {
		t.Errorf("expected 2 successful chats, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues(ChatOutcomeFallback)); got != 1 {
		t.Errorf("expected 1 fallback chat, got %v", got)
	}
}

func TestRecordTokens(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTokens("gpt-4o-mini", 42)
	m.RecordTokens("gpt-4o-mini", 8)
	m.RecordTokens("gpt-4o-mini", 0)

	if got := testutil.ToFloat64(m.TokensConsumedTotal.WithLabelValues("gpt-4o-mini")); got != 50 {
		t.Errorf("expected 50 tokens, got %v", got)
	}
}

func TestRecordLogin(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLogin("success")
	m.RecordLogin("invalid")
	m.RecordLogin("invalid")

	if got := testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("invalid")); got != 2 {
		t.Errorf("expected 2 invalid logins, got %v", got)
	}
}

func TestSetStoreEntities(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetStoreEntities("api_keys", 3)
	m.SetStoreEntities("api_keys", 2)

	if got := testutil.ToFloat64(m.StoreEntities.WithLabelValues("api_keys")); got != 2 {
		t.Errorf("expected gauge value 2, got %v", got)
	}
}

func TestRecordExternalAPI(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordExternalAPIRequest("chat_provider", "chat_completion")
	m.RecordExternalAPIRequest("chat_provider", "chat_completion")
	m.RecordExternalAPIError("chat_provider", "chat_completion", "timeout")

	if got := testutil.ToFloat64(m.ExternalAPIRequestsTotal.WithLabelValues("chat_provider", "chat_completion")); got != 2 {
		t.Errorf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.ExternalAPIErrorsTotal.WithLabelValues("chat_provider", "chat_completion", "timeout")); got != 1 {
		t.Errorf("expected 1 timeout error, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/api/health", "200", 10*time.Millisecond, 100)
	m.RecordHTTPRequest("GET", "/api/health", "200", 15*time.Millisecond, 120)
	m.RecordHTTPRequest("POST", "/api/chat/send", "400", 5*time.Millisecond, 40)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200")); got != 2 {
		t.Errorf("expected 2 health requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/chat/send", "400")); got != 1 {
		t.Errorf("expected 1 rejected send, got %v", got)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetCircuitBreakerState("chat_provider", 2)
	m.RecordCircuitBreakerTrip("chat_provider")

	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("chat_provider")); got != 2 {
		t.Errorf("expected state 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("chat_provider")); got != 1 {
		t.Errorf("expected 1 trip, got %v", got)
	}
}

func TestTimer(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	timer := m.NewTimer()
	time.Sleep(10 * time.Millisecond)

	if d := timer.Duration(); d < 10*time.Millisecond {
		t.Errorf("Expected duration to be at least 10ms, got %v", d)
	}

	timer.ObserveChat(ChatOutcomeSuccess)
	timer.ObserveExternalAPI("chat_provider", "chat_completion")

	if got := testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues(ChatOutcomeSuccess)); got != 1 {
		t.Errorf("ObserveChat should count the request, got %v", got)
	}
}

func TestGetMetrics_Singleton(t *testing.T) {
	original := globalMetrics
	defer func() { globalMetrics = original }()

	globalMetrics = NewMetrics(prometheus.NewRegistry())

	m1 := GetMetrics()
	if m1 == nil {
		t.Fatal("GetMetrics returned nil")
	}
	if m2 := GetMetrics(); m1 != m2 {
		t.Error("GetMetrics should return the same instance")
	}
}
