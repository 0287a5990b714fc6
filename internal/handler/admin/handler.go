// Package admin exposes the operator dashboard surface: the live session
// list, per-session message feeds, replies, and deletion.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/middleware"
	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	adminservice "github.com/tusharmistari/portfolio/backend/internal/service/admin"
	"github.com/tusharmistari/portfolio/backend/internal/store"
	"github.com/tusharmistari/portfolio/backend/pkg/utils"
)

type Handler struct {
	chatStore store.ChatStore
	log       zerolog.Logger

	mu       sync.Mutex
	consoles map[string]*adminservice.Console
}

func New(chatStore store.ChatStore, log zerolog.Logger) *Handler {
	return &Handler{
		chatStore: chatStore,
		log:       log,
		consoles:  make(map[string]*adminservice.Console),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/stream", h.handleSessionListStream)
	r.Get("/sessions/{sessionID}/stream", h.handleMessageStream)
	r.Get("/sessions/{sessionID}/messages", h.handleHistory)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
	r.Post("/reply", h.handleReply)
}

// console returns the operator's console, creating it on first use. One
// console per operator session: selection state survives across requests.
func (h *Handler) console(r *http.Request) (*adminservice.Console, string) {
	sess, _ := middleware.SessionFromContext(r.Context())
	key := sess.ID

	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.consoles[key]
	if !ok {
		c = adminservice.NewConsole(h.chatStore, h.log.With().Str("component", "console").Logger())
		h.consoles[key] = c
	}
	return c, key
}

func (h *Handler) dropConsole(key string) {
	h.mu.Lock()
	c, ok := h.consoles[key]
	delete(h.consoles, key)
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// handleSessionListStream is the dashboard's backbone feed. Every event
// replaces the whole visible list, ordered by lastUpdated descending.
// When the stream ends the operator's console is torn down.
func (h *Handler) handleSessionListStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	console, key := h.console(r)
	defer h.dropConsole(key)

	feed, err := console.Sessions(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "could not open session feed")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-feed.Snapshots():
			if !open {
				if err := feed.Err(); err != nil {
					h.log.Error().Err(err).Msg("session feed failed")
					utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": "feed disconnected"})
				}
				return
			}
			if snapshot == nil {
				snapshot = []chat.Session{}
			}
			utils.SendSSEEvent(w, flusher, "snapshot", snapshot)
		}
	}
}

// handleMessageStream opens one conversation. Selecting a session with the
// unread flag set clears it with a single upsert; any previously open
// message feed for this operator is replaced.
func (h *Handler) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	console, _ := h.console(r)
	feed, err := console.Select(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "could not open message feed")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-feed.Snapshots():
			if !open {
				if err := feed.Err(); err != nil {
					h.log.Error().Err(err).Str("session_id", sessionID).Msg("message feed failed")
					utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": "feed disconnected"})
				}
				return
			}
			if snapshot == nil {
				snapshot = []chat.Message{}
			}
			utils.SendSSEEvent(w, flusher, "snapshot", snapshot)
		}
	}
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	console, _ := h.console(r)
	msgs, err := console.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	console, _ := h.console(r)
	msg, err := console.Reply(r.Context(), payload.Text)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusCreated, msg)
	case errors.Is(err, adminservice.ErrEmptyReply):
		utils.RespondError(w, http.StatusBadRequest, "reply text is empty")
	case errors.Is(err, adminservice.ErrNoSelection):
		utils.RespondError(w, http.StatusConflict, "no session selected")
	default:
		h.log.Error().Err(err).Msg("reply failed")
		utils.RespondError(w, http.StatusBadGateway, "failed to send reply")
	}
}

// handleDelete removes a session summary. The confirm query parameter is
// the API form of the dashboard's confirmation dialog.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	confirmed := r.URL.Query().Get("confirm") == "true"

	console, _ := h.console(r)
	err := console.Delete(r.Context(), sessionID, confirmed)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case errors.Is(err, adminservice.ErrNotConfirmed):
		utils.RespondError(w, http.StatusBadRequest, "deletion requires confirm=true")
	default:
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("delete failed")
		utils.RespondError(w, http.StatusBadGateway, "failed to delete session")
	}
}
