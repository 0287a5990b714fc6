package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	authcore "github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/config"
	chatservice "github.com/tusharmistari/portfolio/backend/internal/service/chat"
	"github.com/tusharmistari/portfolio/backend/internal/session"
	"github.com/tusharmistari/portfolio/backend/internal/store/memory"
)

func setupAuth(t *testing.T) (*chi.Mux, *authcore.StateBroadcaster) {
	t.Helper()

	mem := memory.NewStore()
	broadcast := authcore.NewStateBroadcaster()
	handler := New(
		authcore.NewMemoryGateway(),
		nil,
		broadcast,
		session.NewMemoryStore(),
		chatservice.NewService(mem, mem, zerolog.Nop()),
		config.AuthConfig{OperatorEmails: []string{"owner@example.com"}},
		config.SessionConfig{TTL: time.Hour},
		zerolog.Nop(),
	)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, broadcast
}

func postJSON(t *testing.T, r http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSignupThenLogin(t *testing.T) {
	r, broadcast := setupAuth(t)

	resp := postJSON(t, r, "/signup", map[string]string{
		"email": "alice@example.com", "password": "secret123", "name": "Alice",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(resp.Result().Cookies()) == 0 {
		t.Fatal("expected a session cookie")
	}

	var body struct {
		Identity authcore.Identity `json:"identity"`
		Operator bool              `json:"operator"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Operator {
		t.Fatal("regular visitor must not be an operator")
	}
	if broadcast.Current(body.Identity.UID) == nil {
		t.Fatal("sign-up must publish the identity")
	}

	resp = postJSON(t, r, "/login", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	r, _ := setupAuth(t)

	resp := postJSON(t, r, "/login", map[string]string{
		"email": "nobody@example.com", "password": "wrong",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	r, _ := setupAuth(t)

	postJSON(t, r, "/signup", map[string]string{
		"email": "bob@example.com", "password": "secret123", "name": "Bob",
	})
	resp := postJSON(t, r, "/signup", map[string]string{
		"email": "bob@example.com", "password": "secret456", "name": "Bob",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestSignupWeakPassword(t *testing.T) {
	r, _ := setupAuth(t)

	resp := postJSON(t, r, "/signup", map[string]string{
		"email": "carol@example.com", "password": "abc", "name": "Carol",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOperatorFlagFromAllowlist(t *testing.T) {
	r, _ := setupAuth(t)

	resp := postJSON(t, r, "/signup", map[string]string{
		"email": "owner@example.com", "password": "secret123", "name": "Owner",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Operator bool `json:"operator"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Operator {
		t.Fatal("allowlisted email must be an operator")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	r, _ := setupAuth(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for logged-out logout, got %d", resp.Code)
	}
}
