package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const identityToolkitBase = "https://identitytoolkit.googleapis.com/v1"

// FirebaseGateway authenticates against the Firebase Identity Toolkit REST
// endpoints using the project's web API key. Credential storage, token
// issuance, and refresh all stay on the provider side.
type FirebaseGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewFirebaseGateway(apiKey string) (*FirebaseGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("firebase api key is required")
	}
	return &FirebaseGateway{
		apiKey:  apiKey,
		baseURL: identityToolkitBase,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

var _ Gateway = (*FirebaseGateway)(nil)

type toolkitResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type toolkitError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *FirebaseGateway) SignIn(ctx context.Context, email, password string) (Identity, error) {
	resp, err := g.post(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return Identity{}, err
	}
	return Identity{UID: resp.LocalID, DisplayName: resp.DisplayName, Email: resp.Email}, nil
}

func (g *FirebaseGateway) SignUp(ctx context.Context, email, password, displayName string) (Identity, error) {
	resp, err := g.post(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return Identity{}, err
	}

	// Mirror of updateProfile: attach the display name to the fresh account.
	if displayName != "" {
		if _, err := g.post(ctx, "accounts:update", map[string]interface{}{
			"idToken":           resp.IDToken,
			"displayName":       displayName,
			"returnSecureToken": false,
		}); err != nil {
			return Identity{}, fmt.Errorf("updating profile: %w", err)
		}
	}

	return Identity{UID: resp.LocalID, DisplayName: displayName, Email: email}, nil
}

func (g *FirebaseGateway) post(ctx context.Context, endpoint string, payload map[string]interface{}) (*toolkitResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", g.baseURL, endpoint, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		var terr toolkitError
		if err := json.NewDecoder(httpResp.Body).Decode(&terr); err != nil {
			return nil, fmt.Errorf("identity toolkit %s: status %d", endpoint, httpResp.StatusCode)
		}
		return nil, mapToolkitError(terr.Error.Message)
	}

	var resp toolkitResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return &resp, nil
}

// mapToolkitError translates the provider's error codes into sentinels.
func mapToolkitError(code string) error {
	switch {
	case code == "EMAIL_NOT_FOUND", code == "INVALID_PASSWORD", code == "INVALID_LOGIN_CREDENTIALS", code == "USER_DISABLED":
		return ErrInvalidCredentials
	case code == "EMAIL_EXISTS":
		return ErrEmailInUse
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return ErrWeakPassword
	default:
		return fmt.Errorf("identity toolkit: %s", code)
	}
}
