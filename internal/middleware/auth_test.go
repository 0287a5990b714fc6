package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/session"
)

func seed(t *testing.T, store session.Store, sess session.Session) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), sess))
}

func protected(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(sess.Identity.UID))
	})
}

func TestRequireAuthRejectsMissingCookie(t *testing.T) {
	mw := NewAuth(session.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	mw.RequireAuth(protected(t)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireAuthAttachesSession(t *testing.T) {
	store := session.NewMemoryStore()
	seed(t, store, session.Session{
		ID:        "s1",
		Identity:  auth.Identity{UID: "u1"},
		ExpiresAt: time.Now().Add(time.Hour),
	})
	mw := NewAuth(store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s1"})
	resp := httptest.NewRecorder()
	mw.RequireAuth(protected(t)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "u1", resp.Body.String())
}

func TestRequireAuthRejectsExpiredSession(t *testing.T) {
	store := session.NewMemoryStore()
	seed(t, store, session.Session{
		ID:        "s1",
		Identity:  auth.Identity{UID: "u1"},
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	mw := NewAuth(store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s1"})
	resp := httptest.NewRecorder()
	mw.RequireAuth(protected(t)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireOperatorRejectsVisitors(t *testing.T) {
	store := session.NewMemoryStore()
	seed(t, store, session.Session{
		ID:        "s1",
		Identity:  auth.Identity{UID: "u1"},
		Operator:  false,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	mw := NewAuth(store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s1"})
	resp := httptest.NewRecorder()
	mw.RequireOperator(protected(t)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequireOperatorAllowsOperators(t *testing.T) {
	store := session.NewMemoryStore()
	seed(t, store, session.Session{
		ID:        "s1",
		Identity:  auth.Identity{UID: "op"},
		Operator:  true,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	mw := NewAuth(store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "s1"})
	resp := httptest.NewRecorder()
	mw.RequireOperator(protected(t)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}
