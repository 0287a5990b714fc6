// Package auth exposes the sign-in surface: email/password, sign-up, the
// federated consent flow, and sign-out.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/config"
	"github.com/tusharmistari/portfolio/backend/internal/session"
	chatservice "github.com/tusharmistari/portfolio/backend/internal/service/chat"
	"github.com/tusharmistari/portfolio/backend/pkg/utils"
)

const stateCookie = "oauth_state"

type Handler struct {
	gateway   auth.Gateway
	federated auth.FederatedProvider
	broadcast *auth.StateBroadcaster
	sessions  session.Store
	chatSvc   *chatservice.Service
	authCfg   config.AuthConfig
	sessCfg   config.SessionConfig
	log       zerolog.Logger
}

func New(
	gateway auth.Gateway,
	federated auth.FederatedProvider,
	broadcast *auth.StateBroadcaster,
	sessions session.Store,
	chatSvc *chatservice.Service,
	authCfg config.AuthConfig,
	sessCfg config.SessionConfig,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		gateway:   gateway,
		federated: federated,
		broadcast: broadcast,
		sessions:  sessions,
		chatSvc:   chatSvc,
		authCfg:   authCfg,
		sessCfg:   sessCfg,
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/signup", h.handleSignup)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	if h.federated != nil {
		r.Get("/google", h.handleGoogleStart)
		r.Get("/google/callback", h.handleGoogleCallback)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.gateway.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	h.establish(w, r, identity)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.gateway.SignUp(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	if err := h.chatSvc.SaveProfile(r.Context(), identity); err != nil {
		h.log.Warn().Err(err).Str("uid", identity.UID).Msg("profile record write failed")
	}

	h.establish(w, r, identity)
}

func (h *Handler) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.sessCfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.federated.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// The user backing out of the consent screen comes back as an
	// access_denied error, not a code.
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		h.respondAuthError(w, auth.ErrConsentDismissed)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		utils.RespondError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	identity, err := h.federated.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error().Err(err).Msg("federated exchange failed")
		utils.RespondError(w, http.StatusBadGateway, "sign-in failed")
		return
	}

	if err := h.chatSvc.SaveProfile(r.Context(), identity); err != nil {
		h.log.Warn().Err(err).Str("uid", identity.UID).Msg("profile record write failed")
	}

	h.establish(w, r, identity)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		if sess, err := h.sessions.Get(r.Context(), cookie.Value); err == nil && sess != nil {
			h.broadcast.SignOut(sess.Identity.UID)
		}
		_ = h.sessions.Delete(r.Context(), cookie.Value)
	}

	session.ClearCookie(w, h.cookieOptions())
	// Idempotent: logging out while logged out succeeds.
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"identity": nil})
		return
	}

	sess, err := h.sessions.Get(r.Context(), cookie.Value)
	if err != nil || sess == nil || time.Now().After(sess.ExpiresAt) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"identity": nil})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"identity": sess.Identity,
		"operator": sess.Operator,
	})
}

// establish creates the cookie session and publishes the sign-in.
func (h *Handler) establish(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := session.GenerateID()
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	sess := session.Session{
		ID:        id,
		Identity:  identity,
		Operator:  h.authCfg.IsOperator(identity.Email),
		ExpiresAt: time.Now().Add(h.sessCfg.TTL),
	}
	if err := h.sessions.Create(r.Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("session store write failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	session.SetCookie(w, id, sess.ExpiresAt, h.cookieOptions())
	h.broadcast.SignIn(identity)

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"identity": identity,
		"operator": sess.Operator,
	})
}

func (h *Handler) cookieOptions() session.CookieOptions {
	return session.CookieOptions{
		Secure:   h.sessCfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrEmailInUse):
		utils.RespondError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, auth.ErrWeakPassword):
		utils.RespondError(w, http.StatusBadRequest, "password too weak")
	case errors.Is(err, auth.ErrConsentDismissed):
		utils.RespondError(w, http.StatusBadRequest, "sign-in was cancelled")
	default:
		h.log.Error().Err(err).Msg("identity provider error")
		utils.RespondError(w, http.StatusBadGateway, "authentication service unavailable")
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
