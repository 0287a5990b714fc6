package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	chatmodel "github.com/tusharmistari/portfolio/backend/internal/model/chat"
	chatservice "github.com/tusharmistari/portfolio/backend/internal/service/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type inboundFrame struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Typing bool   `json:"typing,omitempty"`
}

type outboundFrame struct {
	Event    string              `json:"event"`
	Messages []chatmodel.Message `json:"messages,omitempty"`
	Message  *chatmodel.Message  `json:"message,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla allows one concurrent writer only.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// handleWebSocket is the widget's primary realtime channel: snapshots of
// the message list flow out, send/typing commands flow in.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := &wsConn{conn: raw}
	defer raw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.chatSvc.EnsureSession(ctx, identity); err != nil {
		_ = conn.writeJSON(outboundFrame{Event: "error", Error: "could not open chat session"})
		return
	}

	feed, err := h.chatSvc.Stream(ctx, identity)
	if err != nil {
		_ = conn.writeJSON(outboundFrame{Event: "error", Error: "could not open message feed"})
		return
	}
	defer feed.Close()

	if h.broadcast.Current(identity.UID) == nil {
		h.broadcast.SignIn(identity)
	}
	authCh, cancelAuth := h.broadcast.Subscribe(identity.UID)
	defer cancelAuth()

	// Pump snapshots and auth changes out while the read loop runs below.
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case current, open := <-authCh:
				if !open || current == nil {
					_ = conn.writeJSON(outboundFrame{Event: "signedOut"})
					return
				}
			case snapshot, open := <-feed.Snapshots():
				if !open {
					if err := feed.Err(); err != nil {
						h.log.Error().Err(err).Str("session_id", identity.UID).Msg("message feed failed")
						_ = conn.writeJSON(outboundFrame{Event: "error", Error: "feed disconnected"})
					}
					return
				}
				if snapshot == nil {
					snapshot = []chatmodel.Message{}
				}
				if err := conn.writeJSON(outboundFrame{Event: "snapshot", Messages: snapshot}); err != nil {
					return
				}
			}
		}
	}()

	for {
		var frame inboundFrame
		if err := raw.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "send":
			msg, err := h.chatSvc.Send(ctx, identity, frame.Text)
			switch {
			case err == nil:
				_ = conn.writeJSON(outboundFrame{Event: "sent", Message: &msg})
			case errors.Is(err, chatservice.ErrEmptyMessage):
				// Blank send is a no-op; nothing to report.
			default:
				h.log.Error().Err(err).Str("session_id", identity.UID).Msg("websocket send failed")
				_ = conn.writeJSON(outboundFrame{Event: "error", Error: "failed to send message"})
			}
		case "typing":
			h.chatSvc.SetTyping(ctx, identity, frame.Typing)
		default:
			_ = conn.writeJSON(outboundFrame{Event: "error", Error: "unknown frame type"})
		}
	}
}
