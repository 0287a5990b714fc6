package auth

import "context"

// Gateway wraps the external identity provider. Implementations hold no
// credential storage and no token refresh logic; they translate provider
// responses into Identities and sentinel errors.
type Gateway interface {
	// SignIn authenticates an email/password pair.
	// Fails with ErrInvalidCredentials or a wrapped network error.
	SignIn(ctx context.Context, email, password string) (Identity, error)

	// SignUp creates a new identity with the given display name.
	// Fails with ErrEmailInUse or ErrWeakPassword.
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
}

// FederatedProvider is the server-side shape of an interactive consent
// flow: the caller redirects the user to AuthCodeURL and exchanges the
// returned code for an identity on the callback.
type FederatedProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}
