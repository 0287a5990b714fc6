// Package session binds HTTP requests to authenticated identities via an
// opaque cookie. Stores are interchangeable: Redis in deployment, memory
// in development and tests.
package session

import (
	"context"
	"time"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
)

// Session is one authenticated browser session.
type Session struct {
	ID        string        `json:"id"`
	Identity  auth.Identity `json:"identity"`
	Operator  bool          `json:"operator"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Store persists sessions. A nil session with a nil error means not found.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
