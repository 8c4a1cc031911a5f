// Package router wires the search service routes and applies the
// middleware chain.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/auth/session"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

// Options selects the optional parts. A nil Sessions leaves the search
// endpoints open; a nil Limiter disables rate limiting; a nil Ingest
// leaves out the document intake route.
type Options struct {
	Ingest         *ingesthandler.Handler
	Sessions       *session.Manager
	Limiter        *middleware.RateLimiter
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	AllowOrigins   []string
}

// New builds the full HTTP handler.
//
// Route table:
//
//	GET    /api/v1/search              → ranked search        (session)
//	GET    /api/v1/suggest             → prefix suggestions   (session)
//	POST   /api/v1/documents           → add source documents
//	GET    /api/v1/documents/{id}      → forward index lookup
//	GET    /api/v1/terms/{term}        → inverted index lookup
//	GET    /api/v1/index/stats         → snapshot size
//	POST   /api/v1/index/reload        → rebuild and swap
//	POST   /api/v1/register            → create account
//	POST   /api/v1/login               → open session
//	GET    /api/v1/cache/stats         → query cache counters
//	POST   /api/v1/cache/invalidate    → drop cached results
//	GET    /health/live, /health/ready → probes
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → CORS → RateLimit → Timeout → mux
func New(h *handler.Handler, checker *health.Checker, opts Options) http.Handler {
	protect := func(next http.HandlerFunc) http.Handler { return next }
	if opts.Sessions != nil {
		requireSession := session.RequireSession(opts.Sessions)
		protect = func(next http.HandlerFunc) http.Handler { return requireSession(next) }
	}

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Search API
	mux.Handle("GET /api/v1/search", protect(h.Search))
	mux.Handle("GET /api/v1/suggest", protect(h.Suggest))

	if opts.Ingest != nil {
		mux.HandleFunc("POST /api/v1/documents", opts.Ingest.Ingest)
	}

	// Index inspection
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/terms/{term}", h.GetTerm)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)

	// Accounts
	mux.HandleFunc("POST /api/v1/register", h.Register)
	mux.HandleFunc("POST /api/v1/login", h.Login)

	// Cache API
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if opts.Metrics != nil {
		mws = append(mws, middleware.Metrics(opts.Metrics))
	}
	mws = append(mws, middleware.CORS(middleware.DefaultCORSConfig(opts.AllowOrigins)))
	if opts.Limiter != nil {
		mws = append(mws, opts.Limiter.Middleware)
	}
	if opts.RequestTimeout > 0 {
		mws = append(mws, middleware.Timeout(opts.RequestTimeout))
	}
	return middleware.Chain(mux, mws...)
}
