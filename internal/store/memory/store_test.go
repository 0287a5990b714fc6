package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharmistari/portfolio/backend/internal/model/chat"
	"github.com/tusharmistari/portfolio/backend/internal/store"
)

func TestAppendMessageAssignsIDAndTimestamp(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, err := s.AppendMessage(ctx, "u1", chat.Message{Text: "hello", Sender: chat.SenderUser})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := s.AppendMessage(ctx, "u1", chat.Message{Text: "again", Sender: chat.SenderUser})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt), "timestamps must be strictly increasing per session")
}

func TestListMessagesOrderedByCreation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.AppendMessage(ctx, "u1", chat.Message{Text: text, Sender: chat.SenderUser})
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
	assert.Equal(t, "three", msgs[2].Text)
}

func TestUpsertSessionMergesPartialPatches(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertSession(ctx, "u1", chat.SessionPatch{
		UserName:  chat.String("Alice"),
		UserEmail: chat.String("alice@example.com"),
		Touch:     true,
	}))
	require.NoError(t, s.UpsertSession(ctx, "u1", chat.SessionPatch{
		LastMessage: chat.String("hello"),
		Unread:      chat.Bool(true),
		Touch:       true,
	}))

	sess, err := s.GetSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.UserName, "unspecified fields keep prior values")
	assert.Equal(t, "alice@example.com", sess.UserEmail)
	assert.Equal(t, "hello", sess.LastMessage)
	assert.True(t, sess.Unread)
}

func TestGetSessionNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestDeleteSessionLeavesMessagesBehind(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertSession(ctx, "u1", chat.SessionPatch{Touch: true}))
	_, err := s.AppendMessage(ctx, "u1", chat.Message{Text: "hello", Sender: chat.SenderUser})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, "u1"))

	_, err = s.GetSession(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	// Orphaned messages remain readable by direct session id.
	msgs, err := s.ListMessages(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteSession(ctx, "u1"))
}

func TestSessionFeedDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	feed, err := s.SubscribeSessions(ctx)
	require.NoError(t, err)
	defer feed.Close()

	initial := <-feed.Snapshots()
	assert.Empty(t, initial)

	require.NoError(t, s.UpsertSession(ctx, "u1", chat.SessionPatch{LastMessage: chat.String("hi"), Touch: true}))
	next := <-feed.Snapshots()
	require.Len(t, next, 1)
	assert.Equal(t, "u1", next[0].SessionID)

	require.NoError(t, s.DeleteSession(ctx, "u1"))
	afterDelete := <-feed.Snapshots()
	assert.Empty(t, afterDelete, "deleted session disappears from the next push")
}

func TestSessionFeedOrderedByRecency(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertSession(ctx, "a", chat.SessionPatch{Touch: true}))
	require.NoError(t, s.UpsertSession(ctx, "b", chat.SessionPatch{Touch: true}))
	require.NoError(t, s.UpsertSession(ctx, "c", chat.SessionPatch{Touch: true}))
	// Bump the oldest back to the top.
	require.NoError(t, s.UpsertSession(ctx, "a", chat.SessionPatch{Touch: true}))

	feed, err := s.SubscribeSessions(ctx)
	require.NoError(t, err)
	defer feed.Close()

	snap := <-feed.Snapshots()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].SessionID)
	assert.Equal(t, "c", snap[1].SessionID)
	assert.Equal(t, "b", snap[2].SessionID)
}

func TestMessageFeedReplacesWholesale(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	feed, err := s.SubscribeMessages(ctx, "u1")
	require.NoError(t, err)
	defer feed.Close()

	initial := <-feed.Snapshots()
	assert.Empty(t, initial)

	_, err = s.AppendMessage(ctx, "u1", chat.Message{Text: "hello", Sender: chat.SenderUser})
	require.NoError(t, err)
	snap := <-feed.Snapshots()
	require.Len(t, snap, 1)

	_, err = s.AppendMessage(ctx, "u1", chat.Message{Text: "hi", Sender: chat.SenderAdmin})
	require.NoError(t, err)
	snap = <-feed.Snapshots()
	require.Len(t, snap, 2, "each push carries the full list, not a diff")
	assert.Equal(t, "hello", snap[0].Text)
	assert.Equal(t, "hi", snap[1].Text)
}

func TestMessageFeedScopedToSession(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	feed, err := s.SubscribeMessages(ctx, "u1")
	require.NoError(t, err)
	defer feed.Close()
	<-feed.Snapshots()

	_, err = s.AppendMessage(ctx, "u2", chat.Message{Text: "other", Sender: chat.SenderUser})
	require.NoError(t, err)

	select {
	case snap := <-feed.Snapshots():
		t.Fatalf("feed for u1 received snapshot for another session: %v", snap)
	default:
	}
}

func TestFeedCloseIsIdempotent(t *testing.T) {
	s := NewStore()
	feed, err := s.SubscribeSessions(context.Background())
	require.NoError(t, err)
	<-feed.Snapshots()

	feed.Close()
	feed.Close()

	_, open := <-feed.Snapshots()
	assert.False(t, open)
	assert.NoError(t, feed.Err())
}
