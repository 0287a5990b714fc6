package auth

import "sync"

// StateBroadcaster is the process-scoped sign-in state observable, shared
// by every consumer instead of ad hoc per-view listeners. Subscriptions
// are keyed by user id: each subscriber receives the identity in effect at
// subscription time and again on every sign-in or sign-out of that user.
// A nil Identity means signed out.
type StateBroadcaster struct {
	mu      sync.Mutex
	current map[string]*Identity
	subs    map[string]map[int]chan *Identity
	next    int
}

func NewStateBroadcaster() *StateBroadcaster {
	return &StateBroadcaster{
		current: make(map[string]*Identity),
		subs:    make(map[string]map[int]chan *Identity),
	}
}

// Subscribe watches one user's sign-in state. The current value is
// delivered immediately. Callers must cancel when the owning view goes
// away; a leaked subscription keeps receiving updates forever.
func (b *StateBroadcaster) Subscribe(uid string) (<-chan *Identity, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan *Identity, 1)
	if b.subs[uid] == nil {
		b.subs[uid] = make(map[int]chan *Identity)
	}
	b.subs[uid][id] = ch
	ch <- b.current[uid]
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[uid][id]; ok {
			delete(b.subs[uid], id)
			if len(b.subs[uid]) == 0 {
				delete(b.subs, uid)
			}
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// SignIn publishes identity as the user's current state.
func (b *StateBroadcaster) SignIn(identity Identity) {
	b.publish(identity.UID, &identity)
}

// SignOut clears the user's state. Idempotent.
func (b *StateBroadcaster) SignOut(uid string) {
	b.publish(uid, nil)
}

// Current returns the identity in effect for uid right now.
func (b *StateBroadcaster) Current(uid string) *Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current[uid]
}

func (b *StateBroadcaster) publish(uid string, identity *Identity) {
	b.mu.Lock()
	if identity == nil {
		delete(b.current, uid)
	} else {
		b.current[uid] = identity
	}
	for _, ch := range b.subs[uid] {
		select {
		case <-ch:
		default:
		}
		ch <- identity
	}
	b.mu.Unlock()
}
