// Package firestore implements the chat store against Cloud Firestore.
// Summary records live in active_chats/{sessionId}; messages in
// chats/{sessionId}/messages/{messageId}. Feeds are backed by native
// query snapshot listeners, so every result-set change on the backend
// pushes a full replacement snapshot.
package firestore

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	"github.com/tusharmistari/portfolio/backend/internal/store"
)

const (
	sessionsCollection = "active_chats"
	chatsCollection    = "chats"
	messagesCollection = "messages"
	usersCollection    = "users"
)

type Store struct {
	client *firestore.Client
}

// NewStore connects to the given project's Firestore database.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.ChatStore = (*Store)(nil)
var _ store.ProfileStore = (*Store)(nil)

func (s *Store) sessionDoc(sessionID string) *firestore.DocumentRef {
	return s.client.Collection(sessionsCollection).Doc(sessionID)
}

func (s *Store) messagesCol(sessionID string) *firestore.CollectionRef {
	return s.client.Collection(chatsCollection).Doc(sessionID).Collection(messagesCollection)
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg chat.Message) (chat.Message, error) {
	if sessionID == "" {
		return chat.Message{}, store.ErrSessionNotFound
	}

	ref := s.messagesCol(sessionID).NewDoc()
	wr, err := ref.Create(ctx, map[string]interface{}{
		"text":      msg.Text,
		"sender":    msg.Sender,
		"createdAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("firestore AppendMessage: %w", err)
	}

	msg.ID = ref.ID
	msg.CreatedAt = wr.UpdateTime
	return msg, nil
}

func (s *Store) UpsertSession(ctx context.Context, sessionID string, patch chat.SessionPatch) error {
	if sessionID == "" {
		return store.ErrSessionNotFound
	}

	fields := map[string]interface{}{
		"sessionId": sessionID,
	}
	if patch.UserName != nil {
		fields["userName"] = *patch.UserName
	}
	if patch.UserEmail != nil {
		fields["userEmail"] = *patch.UserEmail
	}
	if patch.LastMessage != nil {
		fields["lastMessage"] = *patch.LastMessage
	}
	if patch.Unread != nil {
		fields["unread"] = *patch.Unread
	}
	if patch.UserTyping != nil {
		fields["userTyping"] = *patch.UserTyping
	}
	if patch.Touch {
		fields["lastUpdated"] = firestore.ServerTimestamp
	}

	if _, err := s.sessionDoc(sessionID).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore UpsertSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	snap, err := s.sessionDoc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return chat.Session{}, store.ErrSessionNotFound
		}
		return chat.Session{}, fmt.Errorf("firestore GetSession: %w", err)
	}

	var sess chat.Session
	if err := snap.DataTo(&sess); err != nil {
		return chat.Session{}, fmt.Errorf("firestore GetSession decode: %w", err)
	}
	sess.SessionID = snap.Ref.ID
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.sessionDoc(sessionID).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	iter := s.messagesCol(sessionID).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []chat.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListMessages: %w", err)
		}

		msg, err := decodeMessage(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *Store) SaveProfile(ctx context.Context, userID, name, email string) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"name":      name,
		"email":     email,
		"role":      "user",
		"createdAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore SaveProfile: %w", err)
	}
	return nil
}

func (s *Store) SubscribeSessions(ctx context.Context) (store.SessionFeed, error) {
	ctx, cancel := context.WithCancel(ctx)
	query := s.client.Collection(sessionsCollection).OrderBy("lastUpdated", firestore.Desc)

	feed := &sessionFeed{ch: make(chan []chat.Session, 1), cancel: cancel}
	go feed.run(query.Snapshots(ctx))
	return feed, nil
}

func (s *Store) SubscribeMessages(ctx context.Context, sessionID string) (store.MessageFeed, error) {
	if sessionID == "" {
		return nil, store.ErrSessionNotFound
	}

	ctx, cancel := context.WithCancel(ctx)
	query := s.messagesCol(sessionID).OrderBy("createdAt", firestore.Asc)

	feed := &messageFeed{ch: make(chan []chat.Message, 1), cancel: cancel}
	go feed.run(query.Snapshots(ctx))
	return feed, nil
}

func decodeMessage(snap *firestore.DocumentSnapshot) (chat.Message, error) {
	var msg chat.Message
	if err := snap.DataTo(&msg); err != nil {
		return chat.Message{}, fmt.Errorf("decode message %s: %w", snap.Ref.ID, err)
	}
	msg.ID = snap.Ref.ID
	return msg, nil
}

func decodeSession(snap *firestore.DocumentSnapshot) (chat.Session, error) {
	var sess chat.Session
	if err := snap.DataTo(&sess); err != nil {
		return chat.Session{}, fmt.Errorf("decode session %s: %w", snap.Ref.ID, err)
	}
	sess.SessionID = snap.Ref.ID
	return sess, nil
}

type sessionFeed struct {
	ch     chan []chat.Session
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func (f *sessionFeed) Snapshots() <-chan []chat.Session { return f.ch }

func (f *sessionFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *sessionFeed) Close() { f.cancel() }

func (f *sessionFeed) run(iter *firestore.QuerySnapshotIterator) {
	defer close(f.ch)
	defer iter.Stop()

	for {
		qsnap, err := iter.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
			}
			return
		}

		snapshot := make([]chat.Session, 0, qsnap.Size)
		docs := qsnap.Documents
		for {
			doc, err := docs.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
				return
			}
			sess, err := decodeSession(doc)
			if err != nil {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
				return
			}
			snapshot = append(snapshot, sess)
		}

		select {
		case <-f.ch:
		default:
		}
		f.ch <- snapshot
	}
}

type messageFeed struct {
	ch     chan []chat.Message
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func (f *messageFeed) Snapshots() <-chan []chat.Message { return f.ch }

func (f *messageFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *messageFeed) Close() { f.cancel() }

func (f *messageFeed) run(iter *firestore.QuerySnapshotIterator) {
	defer close(f.ch)
	defer iter.Stop()

	for {
		qsnap, err := iter.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
			}
			return
		}

		snapshot := make([]chat.Message, 0, qsnap.Size)
		docs := qsnap.Documents
		for {
			doc, err := docs.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
				return
			}
			msg, err := decodeMessage(doc)
			if err != nil {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
				return
			}
			snapshot = append(snapshot, msg)
		}

		select {
		case <-f.ch:
		default:
		}
		f.ch <- snapshot
	}
}
