package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tusharmistari/portfolio/backend/internal/auth"
	"github.com/tusharmistari/portfolio/backend/internal/config"
	"github.com/tusharmistari/portfolio/backend/internal/handler"
	chatservice "github.com/tusharmistari/portfolio/backend/internal/service/chat"
	"github.com/tusharmistari/portfolio/backend/internal/session"
	"github.com/tusharmistari/portfolio/backend/internal/store"
	firestorestore "github.com/tusharmistari/portfolio/backend/internal/store/firestore"
	memorystore "github.com/tusharmistari/portfolio/backend/internal/store/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Chat store: Firestore in deployment, memory for local development.
	var chatStore store.ChatStore
	var profileStore store.ProfileStore
	if cfg.Store.FirestoreEnabled() {
		fs, err := firestorestore.NewStore(ctx, cfg.Store.ProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to firestore")
		}
		defer fs.Close()
		chatStore, profileStore = fs, fs
		log.Info().Str("project", cfg.Store.ProjectID).Msg("firestore chat store ready")
	} else {
		mem := memorystore.NewStore()
		chatStore, profileStore = mem, mem
		log.Info().Msg("in-memory chat store ready (no GOOGLE_PROJECT_ID set)")
	}

	// Session store: Redis when configured, memory otherwise.
	var sessionStore session.Store
	if cfg.Session.RedisEnabled() {
		client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Session.RedisAddr).Msg("failed to connect to redis")
		}
		sessionStore = session.NewRedisStore(client)
		log.Info().Str("addr", cfg.Session.RedisAddr).Msg("redis session store ready")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Info().Msg("in-memory session store ready (no REDIS_ADDR set)")
	}

	// Identity provider: Firebase when configured, memory gateway otherwise.
	var gateway auth.Gateway
	if cfg.Auth.FirebaseEnabled() {
		gateway, err = auth.NewFirebaseGateway(cfg.Auth.FirebaseAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize firebase gateway")
		}
		log.Info().Msg("firebase identity gateway ready")
	} else {
		gateway = auth.NewMemoryGateway()
		log.Warn().Msg("memory identity gateway in use (no FIREBASE_API_KEY set)")
	}

	var federated auth.FederatedProvider
	if cfg.Auth.GoogleEnabled() {
		federated, err = auth.NewGoogleProvider(ctx, cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.GoogleRedirectURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize google sign-in")
		}
		log.Info().Msg("google federated sign-in ready")
	} else {
		log.Info().Msg("google federated sign-in disabled")
	}

	broadcast := auth.NewStateBroadcaster()
	chatSvc := chatservice.NewService(chatStore, profileStore, log.With().Str("component", "chat").Logger())

	router := handler.NewRouter(handler.Deps{
		Config:    cfg,
		Gateway:   gateway,
		Federated: federated,
		Broadcast: broadcast,
		Sessions:  sessionStore,
		ChatStore: chatStore,
		ChatSvc:   chatSvc,
		Log:       log,
	})

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("portfolio backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
