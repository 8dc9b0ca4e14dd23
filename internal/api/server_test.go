package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smc-analyst/internal/auth"
	"smc-analyst/internal/events"
	"smc-analyst/internal/guard"
	"smc-analyst/internal/phase"
	"smc-analyst/internal/state"
)

func testServer(config ServerConfig) (*Server, *state.Registry) {
	registry := state.NewRegistry()
	return NewServer(config, registry, events.NewBus(), nil, nil,
		guard.NewNewsGuard(guard.DefaultConfig()), zerolog.Nop()), registry
}

func doRequest(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(ServerConfig{})

	w := doRequest(s, http.MethodGet, "/health", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestSymbolsEndpoint(t *testing.T) {
	s, registry := testServer(ServerConfig{})
	registry.Get("BTCUSDT")

	w := doRequest(s, http.MethodGet, "/api/symbols", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "BTCUSDT") {
		t.Errorf("Body missing symbol: %s", w.Body.String())
	}
}

func TestContextEndpoint(t *testing.T) {
	s, registry := testServer(ServerConfig{})

	if w := doRequest(s, http.MethodGet, "/api/context/BTCUSDT", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("Unknown symbol status = %d, want 404", w.Code)
	}

	registry.Get("BTCUSDT")
	w := doRequest(s, http.MethodGet, "/api/context/BTCUSDT", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var ctx state.Context
	if err := json.Unmarshal(w.Body.Bytes(), &ctx); err != nil {
		t.Fatalf("Invalid context JSON: %v", err)
	}
	if ctx.Symbol != "BTCUSDT" {
		t.Errorf("Context symbol = %s", ctx.Symbol)
	}
}

func TestPhaseEndpoint(t *testing.T) {
	s, registry := testServer(ServerConfig{})
	sc := registry.Get("BTCUSDT")
	sc.Phase.Current = phase.Manipulation
	sc.Phase.Confidence = 0.80

	w := doRequest(s, http.MethodGet, "/api/phase/BTCUSDT", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["phase"] != "MANIPULATION" {
		t.Errorf("phase = %v, want MANIPULATION", body["phase"])
	}
}

func TestObservationsUnavailableWithoutAudit(t *testing.T) {
	s, _ := testServer(ServerConfig{})

	if w := doRequest(s, http.MethodGet, "/api/observations/BTCUSDT", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503 when audit storage is disabled", w.Code)
	}
}

func TestContextResetWithoutAuth(t *testing.T) {
	// Empty password hash disables auth, so reset is open
	s, registry := testServer(ServerConfig{})
	registry.Get("BTCUSDT")

	w := doRequest(s, http.MethodPost, "/api/context/BTCUSDT/reset", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if _, ok := registry.Peek("BTCUSDT"); ok {
		t.Error("Reset must drop the context")
	}
}

func TestProtectedEndpointRejectsMissingToken(t *testing.T) {
	hash, err := auth.HashPassword("operator-secret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	s, _ := testServer(ServerConfig{
		OperatorName:         "ops",
		OperatorPasswordHash: hash,
		JWTSecret:            "test-secret",
	})

	if w := doRequest(s, http.MethodPost, "/api/context/BTCUSDT/reset", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401 without a token", w.Code)
	}
}

func TestLoginAndProtectedAccess(t *testing.T) {
	hash, err := auth.HashPassword("operator-secret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	s, registry := testServer(ServerConfig{
		OperatorName:         "ops",
		OperatorPasswordHash: hash,
		JWTSecret:            "test-secret",
	})
	registry.Get("BTCUSDT")

	bad := doRequest(s, http.MethodPost, "/api/auth/login",
		`{"operator": "ops", "password": "wrong"}`, "")
	if bad.Code != http.StatusUnauthorized {
		t.Errorf("Bad credentials status = %d, want 401", bad.Code)
	}

	good := doRequest(s, http.MethodPost, "/api/auth/login",
		`{"operator": "ops", "password": "operator-secret"}`, "")
	if good.Code != http.StatusOK {
		t.Fatalf("Login status = %d, want 200: %s", good.Code, good.Body.String())
	}

	var loginBody map[string]interface{}
	if err := json.Unmarshal(good.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("Invalid login JSON: %v", err)
	}
	token, _ := loginBody["token"].(string)
	if token == "" {
		t.Fatal("Login must return a token")
	}

	w := doRequest(s, http.MethodPost, "/api/context/BTCUSDT/reset", "", token)
	if w.Code != http.StatusOK {
		t.Errorf("Authorized reset status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestLoginDisabled(t *testing.T) {
	s, _ := testServer(ServerConfig{})

	w := doRequest(s, http.MethodPost, "/api/auth/login",
		`{"operator": "ops", "password": "x"}`, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 when auth is disabled", w.Code)
	}
}

func TestNewsScheduleAndUpcoming(t *testing.T) {
	s, _ := testServer(ServerConfig{})

	at := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	w := doRequest(s, http.MethodPost, "/api/news",
		`{"name": "CPI", "at": "`+at+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Schedule status = %d, want 200: %s", w.Code, w.Body.String())
	}

	list := doRequest(s, http.MethodGet, "/api/news", "", "")
	if list.Code != http.StatusOK {
		t.Fatalf("Upcoming status = %d, want 200", list.Code)
	}
	if !strings.Contains(list.Body.String(), "CPI") {
		t.Errorf("Upcoming missing scheduled event: %s", list.Body.String())
	}
}

func TestNewsScheduleValidation(t *testing.T) {
	s, _ := testServer(ServerConfig{})

	if w := doRequest(s, http.MethodPost, "/api/news", `{"name": "CPI"}`, ""); w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400 for a missing timestamp", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("/api/symbols") {
			t.Fatalf("Request %d must pass under the limit", i)
		}
	}
	if rl.Allow("/api/symbols") {
		t.Error("Fourth request inside the window must be limited")
	}
	if !rl.Allow("/api/context") {
		t.Error("The limit is per endpoint")
	}
}
