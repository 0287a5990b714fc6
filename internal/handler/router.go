package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/config"
	adminHandler "github.com/tusharmistari/portfolio/backend/internal/handler/admin"
	authHandler "github.com/tusharmistari/portfolio/backend/internal/handler/auth"
	chatHandler "github.com/tusharmistari/portfolio/backend/internal/handler/chat"
	"github.com/tusharmistari/portfolio/backend/internal/middleware"
	chatservice "github.com/tusharmistari/portfolio/backend/internal/service/chat"
	"github.com/tusharmistari/portfolio/backend/internal/session"
	"github.com/tusharmistari/portfolio/backend/internal/store"
	"github.com/tusharmistari/portfolio/backend/pkg/utils"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Config    *config.Config
	Gateway   auth.Gateway
	Federated auth.FederatedProvider
	Broadcast *auth.StateBroadcaster
	Sessions  session.Store
	ChatStore store.ChatStore
	ChatSvc   *chatservice.Service
	Log       zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log.With().Str("component", "http").Logger()))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.Config.CORS.AllowedOrigin))

	authMw := middleware.NewAuth(d.Sessions)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			h := authHandler.New(d.Gateway, d.Federated, d.Broadcast, d.Sessions, d.ChatSvc, d.Config.Auth, d.Config.Session, d.Log.With().Str("component", "auth").Logger())
			h.RegisterRoutes(ar)
		})

		api.Route("/chat", func(cr chi.Router) {
			cr.Use(authMw.RequireAuth)
			h := chatHandler.New(d.ChatSvc, d.Broadcast, d.Log.With().Str("component", "widget").Logger())
			h.RegisterRoutes(cr)
		})

		api.Route("/admin", func(ar chi.Router) {
			ar.Use(authMw.RequireOperator)
			h := adminHandler.New(d.ChatStore, d.Log.With().Str("component", "admin").Logger())
			h.RegisterRoutes(ar)
		})
	})

	return r
}
