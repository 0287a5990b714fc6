// Package memory implements the chat store against process memory. It backs
// local development and tests, mirroring the document-database semantics:
// server-assigned ids and timestamps, merge upserts, and full-snapshot feeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	"github.com/tusharmistari/portfolio/backend/internal/store"
)

type profile struct {
	Name  string
	Email string
}

// Store keeps sessions and messages in mutex-guarded maps and fans out a
// fresh full snapshot to every subscriber after each mutation.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	profiles map[string]profile

	sessionSubs map[int]*sessionFeed
	messageSubs map[int]*messageFeed
	nextSub     int

	now func() time.Time
}

// NewStore bootstraps an empty in-memory chat store.
func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]chat.Session),
		messages:    make(map[string][]chat.Message),
		profiles:    make(map[string]profile),
		sessionSubs: make(map[int]*sessionFeed),
		messageSubs: make(map[int]*messageFeed),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ store.ChatStore = (*Store)(nil)
var _ store.ProfileStore = (*Store)(nil)

func (s *Store) AppendMessage(_ context.Context, sessionID string, msg chat.Message) (chat.Message, error) {
	if sessionID == "" {
		return chat.Message{}, store.ErrSessionNotFound
	}

	s.mu.Lock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now()
	// Keep per-session timestamps strictly non-decreasing so snapshot
	// order matches append order even within one clock tick.
	if prev := s.messages[sessionID]; len(prev) > 0 {
		last := prev[len(prev)-1].CreatedAt
		if !msg.CreatedAt.After(last) {
			msg.CreatedAt = last.Add(time.Microsecond)
		}
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	s.publishMessagesLocked(sessionID)
	s.mu.Unlock()

	return msg, nil
}

func (s *Store) UpsertSession(_ context.Context, sessionID string, patch chat.SessionPatch) error {
	if sessionID == "" {
		return store.ErrSessionNotFound
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = chat.Session{SessionID: sessionID, LastUpdated: s.now()}
	}
	if patch.UserName != nil {
		sess.UserName = *patch.UserName
	}
	if patch.UserEmail != nil {
		sess.UserEmail = *patch.UserEmail
	}
	if patch.LastMessage != nil {
		sess.LastMessage = *patch.LastMessage
	}
	if patch.Unread != nil {
		sess.Unread = *patch.Unread
	}
	if patch.UserTyping != nil {
		sess.UserTyping = *patch.UserTyping
	}
	if patch.Touch {
		now := s.now()
		if !now.After(sess.LastUpdated) {
			now = sess.LastUpdated.Add(time.Microsecond)
		}
		sess.LastUpdated = now
	}
	s.sessions[sessionID] = sess
	s.publishSessionsLocked()
	s.mu.Unlock()

	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, store.ErrSessionNotFound
	}
	return sess, nil
}

// DeleteSession removes the summary only. Messages stay behind, and
// deleting an absent summary is a no-op, matching the backend's semantics.
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.publishSessionsLocked()
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageSnapshotLocked(sessionID), nil
}

func (s *Store) SaveProfile(_ context.Context, userID, name, email string) error {
	s.mu.Lock()
	s.profiles[userID] = profile{Name: name, Email: email}
	s.mu.Unlock()
	return nil
}

func (s *Store) SubscribeSessions(_ context.Context) (store.SessionFeed, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	feed := &sessionFeed{ch: make(chan []chat.Session, 1), stop: func() { s.dropSessionSub(id) }}
	s.sessionSubs[id] = feed
	feed.deliver(s.sessionSnapshotLocked())
	s.mu.Unlock()
	return feed, nil
}

func (s *Store) SubscribeMessages(_ context.Context, sessionID string) (store.MessageFeed, error) {
	if sessionID == "" {
		return nil, store.ErrSessionNotFound
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	feed := &messageFeed{sessionID: sessionID, ch: make(chan []chat.Message, 1), stop: func() { s.dropMessageSub(id) }}
	s.messageSubs[id] = feed
	feed.deliver(s.messageSnapshotLocked(sessionID))
	s.mu.Unlock()
	return feed, nil
}

func (s *Store) dropSessionSub(id int) {
	s.mu.Lock()
	delete(s.sessionSubs, id)
	s.mu.Unlock()
}

func (s *Store) dropMessageSub(id int) {
	s.mu.Lock()
	delete(s.messageSubs, id)
	s.mu.Unlock()
}

func (s *Store) sessionSnapshotLocked() []chat.Session {
	out := make([]chat.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (s *Store) messageSnapshotLocked(sessionID string) []chat.Message {
	msgs := s.messages[sessionID]
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *Store) publishSessionsLocked() {
	snap := s.sessionSnapshotLocked()
	for _, feed := range s.sessionSubs {
		feed.deliver(snap)
	}
}

func (s *Store) publishMessagesLocked(sessionID string) {
	snap := s.messageSnapshotLocked(sessionID)
	for _, feed := range s.messageSubs {
		if feed.sessionID == sessionID {
			feed.deliver(snap)
		}
	}
}

// sessionFeed delivers the latest session-list snapshot. A slow consumer
// only ever misses intermediate snapshots, never the newest one.
type sessionFeed struct {
	ch     chan []chat.Session
	stop   func()
	closed sync.Once
}

func (f *sessionFeed) Snapshots() <-chan []chat.Session { return f.ch }

func (f *sessionFeed) Err() error { return nil }

func (f *sessionFeed) Close() {
	f.closed.Do(func() {
		f.stop()
		close(f.ch)
	})
}

func (f *sessionFeed) deliver(snap []chat.Session) {
	select {
	case <-f.ch:
	default:
	}
	f.ch <- snap
}

type messageFeed struct {
	sessionID string
	ch        chan []chat.Message
	stop      func()
	closed    sync.Once
}

func (f *messageFeed) Snapshots() <-chan []chat.Message { return f.ch }

func (f *messageFeed) Err() error { return nil }

func (f *messageFeed) Close() {
	f.closed.Do(func() {
		f.stop()
		close(f.ch)
	})
}

func (f *messageFeed) deliver(snap []chat.Message) {
	select {
	case <-f.ch:
	default:
	}
	f.ch <- snap
}
