// Package chat exposes the visitor widget surface: ensure-session, send,
// typing, and the live message feed over SSE or websocket.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/middleware"
	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	chatservice "github.com/tusharmistari/portfolio/backend/internal/service/chat"
	"github.com/tusharmistari/portfolio/backend/pkg/utils"
)

type Handler struct {
	chatSvc   *chatservice.Service
	broadcast *auth.StateBroadcaster
	log       zerolog.Logger
}

func New(chatSvc *chatservice.Service, broadcast *auth.StateBroadcaster, log zerolog.Logger) *Handler {
	return &Handler{chatSvc: chatSvc, broadcast: broadcast, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleEnsureSession)
	r.Post("/messages", h.handleSend)
	r.Get("/messages", h.handleListMessages)
	r.Post("/typing", h.handleTyping)
	r.Get("/stream", h.handleStream)
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) identity(r *http.Request) (auth.Identity, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok || sess == nil {
		return auth.Identity{}, false
	}
	return sess.Identity, true
}

// handleEnsureSession is the widget's attach step: as soon as an identity
// is present the summary record is created or refreshed.
func (h *Handler) handleEnsureSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to chat")
		return
	}

	if err := h.chatSvc.EnsureSession(r.Context(), identity); err != nil {
		h.log.Error().Err(err).Str("session_id", identity.UID).Msg("ensure session failed")
		utils.RespondError(w, http.StatusBadGateway, "could not open chat session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": identity.UID})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to chat")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatSvc.Send(r.Context(), identity, payload.Text)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusCreated, msg)
	case errors.Is(err, chatservice.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "message text is empty")
	default:
		var partial *chatservice.PartialWriteError
		if errors.As(err, &partial) {
			// The message is persisted; only the summary is stale.
			utils.RespondJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":   "message sent but chat summary update failed",
				"message": partial.Message,
			})
			return
		}
		h.log.Error().Err(err).Str("session_id", identity.UID).Msg("send failed")
		utils.RespondError(w, http.StatusBadGateway, "failed to send message")
	}
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to chat")
		return
	}

	msgs, err := h.chatSvc.History(r.Context(), identity)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleTyping(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to chat")
		return
	}

	var payload struct {
		Typing bool `json:"typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.chatSvc.SetTyping(r.Context(), identity, payload.Typing)
	w.WriteHeader(http.StatusNoContent)
}

// handleStream is the SSE fallback for the widget's live feed. Each event
// carries the full message list; the client re-renders wholesale.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to chat")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if err := h.chatSvc.EnsureSession(r.Context(), identity); err != nil {
		utils.RespondError(w, http.StatusBadGateway, "could not open chat session")
		return
	}

	feed, err := h.chatSvc.Stream(r.Context(), identity)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "could not open message feed")
		return
	}
	defer feed.Close()

	// A cookie session can outlive the process; reseed the sign-in state
	// so the initial observable value reflects this authenticated request.
	if h.broadcast.Current(identity.UID) == nil {
		h.broadcast.SignIn(identity)
	}
	authCh, cancelAuth := h.broadcast.Subscribe(identity.UID)
	defer cancelAuth()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case current, open := <-authCh:
			if !open || current == nil {
				// Signed out elsewhere: the widget clears its local state.
				utils.SendSSEEvent(w, flusher, "signedOut", map[string]string{})
				return
			}
		case snapshot, open := <-feed.Snapshots():
			if !open {
				if err := feed.Err(); err != nil {
					h.log.Error().Err(err).Str("session_id", identity.UID).Msg("message feed failed")
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
