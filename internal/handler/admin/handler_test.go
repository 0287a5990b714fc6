package admin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/middleware"
	chatmodel "github.com/tusharmistari/portfolio/backend/internal/model/chat"
	"github.com/tusharmistari/portfolio/backend/internal/session"
	"github.com/tusharmistari/portfolio/backend/internal/store/memory"
)

func setupAdmin(t *testing.T) (*chi.Mux, *memory.Store, *http.Cookie) {
	t.Helper()

	mem := memory.NewStore()
	handler := New(mem, zerolog.Nop())

	sessions := session.NewMemoryStore()
	sess := session.Session{
		ID:        "op-session",
		Identity:  auth.Identity{UID: "op", Email: "owner@example.com"},
		Operator:  true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.NewAuth(sessions).RequireOperator)
	handler.RegisterRoutes(r)

	cookie := &http.Cookie{Name: session.CookieName, Value: "op-session"}
	return r, mem, cookie
}

func seedChat(t *testing.T, mem *memory.Store, id string, unread bool) {
	t.Helper()
	err := mem.UpsertSession(context.Background(), id, chatmodel.SessionPatch{
		LastMessage: chatmodel.String("hello"),
		Unread:      chatmodel.Bool(unread),
		Touch:       true,
	})
	if err != nil {
		t.Fatalf("failed to seed chat session: %v", err)
	}
}

func TestAdminRoutesRequireOperator(t *testing.T) {
	r, _, _ := setupAdmin(t)

	req := httptest.NewRequest(http.MethodPost, "/reply", bytes.NewReader([]byte(`{"text":"hi"}`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestReplyWithoutSelection(t *testing.T) {
	r, _, cookie := setupAdmin(t)

	req := httptest.NewRequest(http.MethodPost, "/reply", bytes.NewReader([]byte(`{"text":"hi"}`)))
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestDeleteRequiresConfirmQuery(t *testing.T) {
	r, mem, cookie := setupAdmin(t)
	seedChat(t, mem, "u1", false)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/u1", nil)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if _, err := mem.GetSession(context.Background(), "u1"); err != nil {
		t.Fatalf("session must survive an unconfirmed delete: %v", err)
	}
}

func TestDeleteConfirmedLeavesOrphanedMessages(t *testing.T) {
	r, mem, cookie := setupAdmin(t)
	seedChat(t, mem, "u1", true)
	if _, err := mem.AppendMessage(context.Background(), "u1", chatmodel.Message{Text: "pending", Sender: chatmodel.SenderUser}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/sessions/u1?confirm=true", nil)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// Summary gone, messages still readable by direct id.
	if _, err := mem.GetSession(context.Background(), "u1"); err == nil {
		t.Fatal("expected summary to be deleted")
	}

	histReq := httptest.NewRequest(http.MethodGet, "/sessions/u1/messages", nil)
	histReq.AddCookie(cookie)
	histResp := httptest.NewRecorder()
	r.ServeHTTP(histResp, histReq)

	if histResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", histResp.Code)
	}
	if !strings.Contains(histResp.Body.String(), "pending") {
		t.Fatalf("expected orphaned message in history, got %s", histResp.Body.String())
	}
}

func TestMessageStreamClearsUnread(t *testing.T) {
	r, mem, cookie := setupAdmin(t)
	seedChat(t, mem, "u1", true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	req := httptest.NewRequest(http.MethodGet, "/sessions/u1/stream", nil).WithContext(ctx)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	sess, err := mem.GetSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Unread {
		t.Fatal("opening a session must clear the unread flag")
	}
	if !strings.Contains(resp.Body.String(), "event: snapshot") {
		t.Fatalf("expected a snapshot event, got %s", resp.Body.String())
	}
}

func TestSessionListStreamDeliversSnapshot(t *testing.T) {
	r, mem, cookie := setupAdmin(t)
	seedChat(t, mem, "u1", false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	req := httptest.NewRequest(http.MethodGet, "/sessions/stream", nil).WithContext(ctx)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	body := resp.Body.String()
	if !strings.Contains(body, "event: snapshot") || !strings.Contains(body, "u1") {
		t.Fatalf("expected session list snapshot, got %s", body)
	}
}
