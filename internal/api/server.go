// ABOUTME: HTTP server struct, constructor, and handler wiring for scanmgr.
// ABOUTME: Holds auth dependencies (store, config, argon2 semaphore) used by handlers.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/varden/scanmgr/internal/config"
	"github.com/varden/scanmgr/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       *store.Store
	cfg         *config.Config
	argon2Sem   chan struct{}
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server.
func NewServer(s *store.Store, cfg *config.Config) *Server {
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 10 requests per minute, burst of 10.
	return &Server{
		store:       s,
		cfg:         cfg,
		argon2Sem:   make(chan struct{}, cfg.Argon2MaxConcurrent),
		rateLimiter: newIPRateLimiter(rate.Limit(10.0/60), 10, evictTTL),
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	// Trust X-Forwarded-For only when a proxy layer is declared; otherwise
	// clients could spoof their way past the per-IP rate limiter.
	if srv.cfg.TrustedProxies != "" {
		r.Use(middleware.RealIP)
	}
	// 1 MB global body limit — protect against OOM from large request bodies.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── Public API: login only, behind the per-IP rate limit ─────────────────
	publicRouter := chi.NewRouter()
	publicRouter.Use(srv.authRateLimit())
	publicAPI := humachi.New(publicRouter, humaConfig("scanmgr auth"))
	registerAuthRoutes(publicAPI, srv)

	// ── Authenticated API: listings, filters, settings ────────────────────────
	apiRouter := chi.NewRouter()
	apiRouter.Use(srv.RequireAuthenticated())
	api := humachi.New(apiRouter, humaConfig("scanmgr"))
	registerListRoutes(api, srv)
	registerReportRoutes(api, srv)
	registerFilterRoutes(api, srv)
	registerSettingsRoutes(api, srv)

	r.Mount("/api/v1/auth", publicRouter)
	r.Mount("/api/v1", apiRouter)

	return r
}

func humaConfig(title string) huma.Config {
	cfg := huma.DefaultConfig(title, "0.1.0")
	cfg.Info.Description = "Scan management and resource listing API"
	return cfg
}

// acquireArgon2 tries to acquire the argon2 semaphore. Returns false if all
// slots are in use — the caller should return 503 immediately (do NOT block).
func (srv *Server) acquireArgon2() bool {
	select {
	case srv.argon2Sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (srv *Server) releaseArgon2() { <-srv.argon2Sem }

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp = healthResponse{Status: "degraded", DB: "unavailable"}
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			resp = healthResponse{Status: "degraded", DB: "unavailable"}
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}
}
