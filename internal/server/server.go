package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pgpay/pgpay-backend/internal/auth"
	"github.com/pgpay/pgpay-backend/internal/config"
	"github.com/pgpay/pgpay-backend/internal/http/handlers"
	"github.com/pgpay/pgpay-backend/internal/mailer"
	"github.com/pgpay/pgpay-backend/internal/middleware"
	"github.com/pgpay/pgpay-backend/internal/notify"
	"github.com/pgpay/pgpay-backend/internal/proofstore"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// Stores is the full persistence surface the server wires into handlers.
type Stores interface {
	storage.UserStore
	storage.ProfileStore
	storage.TicketStore
	storage.SettingsStore
	storage.AuditStore
	storage.PermissionStore
	storage.ResendStore
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, log *zap.Logger, store Stores, proofs proofstore.Store, mail mailer.Mailer, hub *notify.Hub) *Server {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(time.Now()).Register(mux)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handlers.NewAuthHandler(store, store, store, store, tokens, mail, log,
		cfg.PublicBaseURL, cfg.ResendWindow, cfg.ResendMaxAttempts).Register(mux)
	handlers.NewProfileHandler(store, log).Register(mux)
	handlers.NewTicketHandler(store, store, store, proofs, hub, log, cfg.SignedURLTTL).Register(mux)
	handlers.NewAdminHandler(store, store, store, store, store, proofs, hub, log,
		cfg.ProofRetention, cfg.SignedURLTTL).Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins,
		middleware.Logging(log,
			middleware.Authenticate(tokens, store, mux)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
