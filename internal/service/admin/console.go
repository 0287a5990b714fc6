// Package admin implements the operator console: the live session list,
// one open conversation at a time, replies, and session deletion.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	"github.com/tusharmistari/portfolio/backend/internal/store"
)

var (
	ErrEmptyReply   = errors.New("reply text is empty")
	ErrNoSelection  = errors.New("no session selected")
	ErrNotConfirmed = errors.New("deletion not confirmed")
)

// Console is one operator's view of the chat subsystem. It holds at most
// one open message feed; selecting a new session replaces the old feed.
type Console struct {
	store store.ChatStore
	log   zerolog.Logger

	mu          sync.Mutex
	selected    string
	messageFeed store.MessageFeed
	sessionFeed store.SessionFeed
}

func NewConsole(chatStore store.ChatStore, log zerolog.Logger) *Console {
	return &Console{store: chatStore, log: log}
}

// Sessions opens the live session-list feed ordered by recency. The feed
// is owned by the console and torn down on Close.
func (c *Console) Sessions(ctx context.Context) (store.SessionFeed, error) {
	feed, err := c.store.SubscribeSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe sessions: %w", err)
	}

	c.mu.Lock()
	if c.sessionFeed != nil {
		c.sessionFeed.Close()
	}
	c.sessionFeed = feed
	c.mu.Unlock()
	return feed, nil
}

// Select opens one session's message feed, replacing any prior selection.
// If the session is flagged unread, exactly one clearing upsert is issued.
func (c *Console) Select(ctx context.Context, sessionID string) (store.MessageFeed, error) {
	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	if err == nil && sess.Unread {
		err := c.store.UpsertSession(ctx, sessionID, chat.SessionPatch{
			Unread: chat.Bool(false),
		})
		if err != nil {
			c.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to clear unread flag")
		}
	}

	feed, err := c.store.SubscribeMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("subscribe messages %s: %w", sessionID, err)
	}

	c.mu.Lock()
	if c.messageFeed != nil {
		c.messageFeed.Close()
	}
	c.messageFeed = feed
	c.selected = sessionID
	c.mu.Unlock()
	return feed, nil
}

// Selected returns the currently open session id, if any.
func (c *Console) Selected() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// Reply appends an operator message to the selected session and updates
// the summary. An operator reply never marks the session unread.
func (c *Console) Reply(ctx context.Context, text string) (chat.Message, error) {
	c.mu.Lock()
	sessionID := c.selected
	c.mu.Unlock()

	if sessionID == "" {
		return chat.Message{}, ErrNoSelection
	}
	if chat.Blank(text) {
		return chat.Message{}, ErrEmptyReply
	}

	msg, err := c.store.AppendMessage(ctx, sessionID, chat.Message{
		Text:   text,
		Sender: chat.SenderAdmin,
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("append reply: %w", err)
	}

	err = c.store.UpsertSession(ctx, sessionID, chat.SessionPatch{
		LastMessage: chat.String(text),
		Unread:      chat.Bool(false),
		Touch:       true,
	})
	if err != nil {
		// Independent writes, no atomicity: the reply is persisted, the
		// summary is stale until the next successful write.
		c.log.Error().Err(err).Str("session_id", sessionID).Msg("summary update failed after reply")
		return msg, fmt.Errorf("reply sent but summary update failed: %w", err)
	}

	return msg, nil
}

// Delete removes a session's summary record. Messages are intentionally
// left behind; they remain readable by direct session id. Deleting the
// selected session clears the selection.
func (c *Console) Delete(ctx context.Context, sessionID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := c.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}

	c.mu.Lock()
	if c.selected == sessionID {
		c.selected = ""
		if c.messageFeed != nil {
			c.messageFeed.Close()
			c.messageFeed = nil
		}
	}
	c.mu.Unlock()

	c.log.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// History is a one-shot read of a session's messages. It works against
// deleted sessions too: orphaned messages remain readable by id.
func (c *Console) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return c.store.ListMessages(ctx, sessionID)
}

// Close tears down every feed the console owns.
func (c *Console) Close() {
	c.mu.Lock()
	if c.messageFeed != nil {
		c.messageFeed.Close()
		c.messageFeed = nil
	}
	if c.sessionFeed != nil {
		c.sessionFeed.Close()
		c.sessionFeed = nil
	}
	c.selected = ""
	c.mu.Unlock()
}
