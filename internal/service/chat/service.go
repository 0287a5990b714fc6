// Package chat implements the visitor side of the support conversation:
// one session per authenticated visitor, keyed by their user id.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	"github.com/tusharmistari/portfolio/backend/internal/store"
)

var (
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// PartialWriteError reports a send whose message write succeeded but whose
// summary update failed. The message is already persisted; only the
// session summary is stale until the next successful write.
type PartialWriteError struct {
	Message chat.Message
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("message sent but summary update failed: %v", e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Service owns the visitor-facing conversation operations.
type Service struct {
	store    store.ChatStore
	profiles store.ProfileStore
	log      zerolog.Logger
}

func NewService(chatStore store.ChatStore, profiles store.ProfileStore, log zerolog.Logger) *Service {
	return &Service{store: chatStore, profiles: profiles, log: log}
}

// EnsureSession eagerly creates or refreshes the visitor's summary record.
// Called as soon as an identity attaches to the widget, before any message
// is sent, so the session exists from first sign-in.
func (s *Service) EnsureSession(ctx context.Context, identity auth.Identity) error {
	if identity.UID == "" {
		return ErrNotAuthenticated
	}

	err := s.store.UpsertSession(ctx, identity.UID, chat.SessionPatch{
		UserName:  chat.String(displayName(identity)),
		UserEmail: chat.String(identity.Email),
		Touch:     true,
	})
	if err != nil {
		return fmt.Errorf("ensure session %s: %w", identity.UID, err)
	}
	return nil
}

// Send appends a visitor message and then updates the session summary.
// The two writes are independent; if the summary write fails the message
// stays and a PartialWriteError is returned.
func (s *Service) Send(ctx context.Context, identity auth.Identity, text string) (chat.Message, error) {
	if identity.UID == "" {
		return chat.Message{}, ErrNotAuthenticated
	}
	if chat.Blank(text) {
		return chat.Message{}, ErrEmptyMessage
	}

	msg, err := s.store.AppendMessage(ctx, identity.UID, chat.Message{
		Text:   text,
		Sender: chat.SenderUser,
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("append message: %w", err)
	}

	err = s.store.UpsertSession(ctx, identity.UID, chat.SessionPatch{
		LastMessage: chat.String(text),
		Unread:      chat.Bool(true),
		UserName:    chat.String(displayName(identity)),
		UserEmail:   chat.String(identity.Email),
		UserTyping:  chat.Bool(false),
		Touch:       true,
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", identity.UID).Msg("summary update failed after send")
		return msg, &PartialWriteError{Message: msg, Err: err}
	}

	return msg, nil
}

// SetTyping publishes the advisory typing flag. Best effort: it does not
// bump lastUpdated and failures are not surfaced to the visitor.
func (s *Service) SetTyping(ctx context.Context, identity auth.Identity, typing bool) {
	if identity.UID == "" {
		return
	}
	err := s.store.UpsertSession(ctx, identity.UID, chat.SessionPatch{
		UserTyping: chat.Bool(typing),
	})
	if err != nil {
		s.log.Debug().Err(err).Str("session_id", identity.UID).Msg("typing update dropped")
	}
}

// Stream opens the visitor's live message feed. The caller owns the feed
// and must Close it when the widget detaches.
func (s *Service) Stream(ctx context.Context, identity auth.Identity) (store.MessageFeed, error) {
	if identity.UID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.store.SubscribeMessages(ctx, identity.UID)
}

// History is a one-shot read of the visitor's messages in order.
func (s *Service) History(ctx context.Context, identity auth.Identity) ([]chat.Message, error) {
	if identity.UID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.store.ListMessages(ctx, identity.UID)
}

// SaveProfile records the profile document created at sign-up.
func (s *Service) SaveProfile(ctx context.Context, identity auth.Identity) error {
	return s.profiles.SaveProfile(ctx, identity.UID, identity.DisplayName, identity.Email)
}

func displayName(identity auth.Identity) string {
	if identity.DisplayName != "" {
		return identity.DisplayName
	}
	return "Anonymous"
}
