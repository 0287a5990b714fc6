// Package store defines the persistence contract for the chat subsystem.
// Implementations sit in front of a document database: summary records live
// in active_chats/{sessionId}, messages in chats/{sessionId}/messages.
package store

import (
	"context"
	"errors"

	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionFeed is a live subscription to the full session list. Every value
// on Snapshots replaces the previous one wholesale; consumers re-render,
// never diff. The channel closes when the feed ends; Err reports why.
type SessionFeed interface {
	Snapshots() <-chan []chat.Session
	Err() error
	Close()
}

// MessageFeed is a live subscription to one session's full message list,
// ordered by createdAt ascending. Same snapshot semantics as SessionFeed.
type MessageFeed interface {
	Snapshots() <-chan []chat.Message
	Err() error
	Close()
}

// ChatStore is the document-database boundary for sessions and messages.
type ChatStore interface {
	// SubscribeSessions streams the session list ordered by lastUpdated
	// descending. The initial snapshot is delivered as soon as the backend
	// produces it.
	SubscribeSessions(ctx context.Context) (SessionFeed, error)

	// SubscribeMessages streams one session's messages ordered by
	// createdAt ascending. Subscribing to a session with no messages is
	// valid and yields an empty snapshot.
	SubscribeMessages(ctx context.Context, sessionID string) (MessageFeed, error)

	// AppendMessage creates an immutable message with a backend-assigned
	// id and timestamp and returns it.
	AppendMessage(ctx context.Context, sessionID string, msg chat.Message) (chat.Message, error)

	// UpsertSession merge-writes a session summary. Fields left nil in the
	// patch keep their stored values; the record is created if absent.
	UpsertSession(ctx context.Context, sessionID string, patch chat.SessionPatch) error

	// GetSession reads one summary record. Returns ErrSessionNotFound when
	// no summary exists, even if orphaned messages remain.
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)

	// DeleteSession removes the summary record only. The message
	// subcollection is intentionally left behind.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListMessages is a one-shot read of a session's messages in
	// createdAt order. Works against orphaned sessions too.
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// ProfileStore persists the user profile record created at sign-up.
type ProfileStore interface {
	SaveProfile(ctx context.Context, userID, name, email string) error
}
