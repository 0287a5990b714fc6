package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeDeliversCurrentStateImmediately(t *testing.T) {
	b := NewStateBroadcaster()

	ch, cancel := b.Subscribe("u1")
	defer cancel()
	assert.Nil(t, <-ch, "signed out before any sign-in")

	b.SignIn(Identity{UID: "u1", DisplayName: "Alice"})
	ch2, cancel2 := b.Subscribe("u1")
	defer cancel2()

	current := <-ch2
	require.NotNil(t, current)
	assert.Equal(t, "Alice", current.DisplayName)
}

func TestSignInAndSignOutReachSubscribers(t *testing.T) {
	b := NewStateBroadcaster()

	ch, cancel := b.Subscribe("u1")
	defer cancel()
	<-ch

	b.SignIn(Identity{UID: "u1"})
	got := <-ch
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)

	b.SignOut("u1")
	assert.Nil(t, <-ch)
	assert.Nil(t, b.Current("u1"))
}

func TestSubscriptionsAreKeyedByUser(t *testing.T) {
	b := NewStateBroadcaster()

	ch, cancel := b.Subscribe("u1")
	defer cancel()
	<-ch

	b.SignIn(Identity{UID: "u2"})
	select {
	case got := <-ch:
		t.Fatalf("subscriber for u1 saw u2's sign-in: %v", got)
	default:
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	b := NewStateBroadcaster()

	ch, cancel := b.Subscribe("u1")
	<-ch
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	b.SignIn(Identity{UID: "u1"})
}
