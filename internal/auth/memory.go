package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryGateway is a development stand-in for the external identity
// provider. Accounts live for the life of the process.
type MemoryGateway struct {
	mu    sync.Mutex
	users map[string]memoryUser
}

type memoryUser struct {
	uid         string
	displayName string
	hash        []byte
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{users: make(map[string]memoryUser)}
}

var _ Gateway = (*MemoryGateway)(nil)

func (g *MemoryGateway) SignIn(_ context.Context, email, password string) (Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	user, ok := g.users[strings.ToLower(email)]
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(user.hash, []byte(password)) != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{UID: user.uid, DisplayName: user.displayName, Email: email}, nil
}

func (g *MemoryGateway) SignUp(_ context.Context, email, password, displayName string) (Identity, error) {
	// Same minimum the managed provider enforces.
	if len(password) < 6 {
		return Identity{}, ErrWeakPassword
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := g.users[key]; ok {
		return Identity{}, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}

	user := memoryUser{uid: uuid.NewString(), displayName: displayName, hash: hash}
	g.users[key] = user
	return Identity{UID: user.uid, DisplayName: displayName, Email: email}, nil
}
