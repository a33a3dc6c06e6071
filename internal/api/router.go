package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/erazemk/cautela/internal/obs"
	"github.com/erazemk/cautela/internal/session"
	"github.com/erazemk/cautela/internal/summary"
)

// Config carries what the API needs. Zero values pick defaults.
type Config struct {
	DB          *sql.DB
	JWTSecret   string
	Units       *session.Manager
	Summarizer  summary.Summarizer
	CORSOrigins []string
	Now         func() time.Time
}

// NewRouter creates the API router with all endpoints registered, wrapped in
// CORS, metrics and request logging.
func NewRouter(cfg Config) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Summarizer == nil {
		cfg.Summarizer = summary.NewOpenAI("")
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret, Units: cfg.Units}
	unitsHandler := &UnitsHandler{Units: cfg.Units}
	movementsHandler := &MovementsHandler{Now: cfg.Now, Summarizer: cfg.Summarizer}
	lifecycleHandler := &LifecycleHandler{}
	syncHandler := &SyncHandler{DB: cfg.DB, Units: cfg.Units}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB, cfg.Units)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/units", unitsHandler.List)
	mux.HandleFunc("GET /api/reference", unitsHandler.Reference)
	mux.Handle("GET /metrics", obs.Handler())

	// Session.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	// Views.
	mux.Handle("GET /api/movements", authMW(http.HandlerFunc(movementsHandler.History)))
	mux.Handle("GET /api/movements/pending", authMW(http.HandlerFunc(movementsHandler.Pending)))
	mux.Handle("GET /api/movements/overdue", authMW(http.HandlerFunc(movementsHandler.Overdue)))
	mux.Handle("GET /api/movements/{id}", authMW(http.HandlerFunc(movementsHandler.Get)))
	mux.Handle("GET /api/summary", authMW(http.HandlerFunc(movementsHandler.Summary)))
	mux.Handle("GET /api/export.xlsx", authMW(http.HandlerFunc(movementsHandler.Export)))

	// Transitions.
	mux.Handle("POST /api/checkout", authMW(http.HandlerFunc(lifecycleHandler.Checkout)))
	mux.Handle("POST /api/return", authMW(http.HandlerFunc(lifecycleHandler.Return)))

	// Sync.
	mux.Handle("POST /api/sync", authMW(http.HandlerFunc(syncHandler.Sync)))
	mux.Handle("GET /api/sync/status", authMW(http.HandlerFunc(syncHandler.Status)))
	mux.Handle("PUT /api/config/endpoint", authMW(http.HandlerFunc(syncHandler.SetEndpoint)))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})

	return c.Handler(obs.Instrument(LoggingMiddleware(mux)))
}
