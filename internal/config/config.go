package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Auth    AuthConfig
	Session SessionConfig
	CORS    CORSConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	sess, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Store:   loadStoreConfig(),
		Auth:    loadAuthConfig(),
		Session: sess,
		CORS:    CORSConfig{AllowedOrigin: getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*")},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StoreConfig selects the chat store backend. An empty project id means
// the in-memory store (local development).
type StoreConfig struct {
	ProjectID string
}

func (c StoreConfig) FirestoreEnabled() bool {
	return c.ProjectID != ""
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{ProjectID: strings.TrimSpace(os.Getenv("GOOGLE_PROJECT_ID"))}
}

// AuthConfig describes the identity provider boundary.
type AuthConfig struct {
	FirebaseAPIKey     string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	OperatorEmails     []string
}

func (c AuthConfig) FirebaseEnabled() bool {
	return c.FirebaseAPIKey != ""
}

func (c AuthConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// IsOperator reports whether email is on the operator allowlist.
func (c AuthConfig) IsOperator(email string) bool {
	for _, op := range c.OperatorEmails {
		if strings.EqualFold(op, email) {
			return true
		}
	}
	return false
}

func loadAuthConfig() AuthConfig {
	var operators []string
	for _, raw := range strings.Split(os.Getenv("OPERATOR_EMAILS"), ",") {
		if email := strings.TrimSpace(raw); email != "" {
			operators = append(operators, email)
		}
	}

	return AuthConfig{
		FirebaseAPIKey:     strings.TrimSpace(os.Getenv("FIREBASE_API_KEY")),
		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET")),
		GoogleRedirectURL:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_REDIRECT_URL")),
		OperatorEmails:     operators,
	}
}

// SessionConfig describes cookie-session storage. An empty Redis address
// means the in-memory store.
type SessionConfig struct {
	RedisAddr    string
	TTL          time.Duration
	SecureCookie bool
}

func (c SessionConfig) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func loadSessionConfig() (SessionConfig, error) {
	ttl := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_TTL value %q: %w", raw, err)
		}
		if parsed <= 0 {
			return SessionConfig{}, fmt.Errorf("SESSION_TTL must be positive, got %q", raw)
		}
		ttl = parsed
	}

	secure := true
	if raw := strings.TrimSpace(os.Getenv("SESSION_INSECURE_COOKIE")); raw == "1" || strings.EqualFold(raw, "true") {
		secure = false
	}

	return SessionConfig{
		RedisAddr:    strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		TTL:          ttl,
		SecureCookie: secure,
	}, nil
}

// CORSConfig describes the allowed browser origin.
type CORSConfig struct {
	AllowedOrigin string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
