package auth

import "errors"

// Identity is a normalized authenticated user as reported by the external
// identity provider. It contains facts only, no authorization decisions.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password too weak")
	ErrConsentDismissed   = errors.New("consent flow dismissed")
)
