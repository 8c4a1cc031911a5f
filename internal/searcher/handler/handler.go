// Package handler serves the search service's HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/auth/session"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

type SearchExecutor interface {
	Execute(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
}

type Suggester interface {
	Suggest(ctx context.Context, prefix string) ([]autocomplete.Suggestion, error)
}

// Index is the engine surface the handler inspects and reloads.
type Index interface {
	LookupDocument(id int64) (index.Document, bool)
	LookupTerm(term string) (index.PostingList, bool)
	Stats() indexer.Stats
	Reload(ctx context.Context) (*indexer.Report, error)
}

type Accounts interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
}

// Tracker receives one event per served query.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

// Deps are the handler's collaborators. Cache, Tracker, Accounts and
// Metrics may be nil.
type Deps struct {
	Executor     SearchExecutor
	Suggester    Suggester
	Index        Index
	Accounts     Accounts
	Cache        *cache.QueryCache
	Tracker      Tracker
	Metrics      *metrics.Metrics
	DefaultLimit int
	MaxResults   int
}

type Handler struct {
	Deps
	logger *slog.Logger
}

func New(deps Deps) *Handler {
	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = 10
	}
	if deps.MaxResults < deps.DefaultLimit {
		deps.MaxResults = deps.DefaultLimit
	}
	return &Handler{
		Deps:   deps,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search?q=...&limit=... The legacy "word"
// parameter is accepted when "q" is absent.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	if query == "" {
		query = strings.TrimSpace(params.Get("word"))
	}
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.DefaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.MaxResults)
	}

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	if h.Cache != nil {
		result, cacheHit, err = h.Cache.GetOrCompute(ctx, query, limit, func() (*executor.SearchResult, error) {
			return h.Executor.Execute(ctx, query, limit)
		})
	} else {
		result, err = h.Executor.Execute(ctx, query, limit)
	}
	if err != nil {
		h.countQuery("error")
		log.Error("search execution failed", "query", query, "error", err)
		h.writeAppError(w, err, "search failed")
		return
	}
	if result.Results == nil {
		result.Results = []ranker.ScoredDoc{}
	}

	latency := time.Since(start)
	resultType := "hit"
	eventType := analytics.EventSearch
	if result.TotalHits == 0 {
		resultType = "zero_result"
		eventType = analytics.EventZeroResult
	}
	h.countQuery(resultType)
	if h.Metrics != nil {
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.Metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.Tracker != nil {
		terms := make([]string, 0, len(result.TermStats))
		for term := range result.TermStats {
			terms = append(terms, term)
		}
		h.Tracker.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			Terms:     terms,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			Username:  session.Username(ctx),
			RequestID: logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

type suggestResponse struct {
	Prefix      string                    `json:"prefix"`
	Suggestions []autocomplete.Suggestion `json:"suggestions"`
}

// Suggest answers GET /api/v1/suggest?prefix=...
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	out, err := h.Suggester.Suggest(r.Context(), prefix)
	if err != nil {
		logger.FromContext(r.Context()).Error("suggest failed", "prefix", prefix, "error", err)
		h.writeAppError(w, err, "suggest failed")
		return
	}
	if out == nil {
		out = []autocomplete.Suggestion{}
	}
	h.writeJSON(w, http.StatusOK, suggestResponse{Prefix: prefix, Suggestions: out})
}

// GetDocument answers GET /api/v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	doc, ok := h.Index.LookupDocument(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("document %d not found", id))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

type termResponse struct {
	Term     string          `json:"term"`
	Postings []index.Posting `json:"postings"`
}

// GetTerm answers GET /api/v1/terms/{term}.
func (h *Handler) GetTerm(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(r.PathValue("term"))
	postings, ok := h.Index.LookupTerm(term)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("term %q not found", term))
		return
	}
	h.writeJSON(w, http.StatusOK, termResponse{Term: term, Postings: postings})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Index.Stats())
}

// Reload rebuilds both index halves from the source documents and swaps
// them in. The query cache is dropped through the engine's publish hook.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	report, err := h.Index.Reload(r.Context())
	if err != nil && report == nil {
		h.logger.Error("index reload failed", "error", err)
		h.writeAppError(w, err, "index reload failed")
		return
	}
	resp := map[string]any{"report": report}
	if err != nil {
		// The new snapshot is live; only persistence failed.
		resp["persist_error"] = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := h.Accounts.Register(r.Context(), creds.Username, creds.Password); err != nil {
		h.writeAppError(w, err, "registration failed")
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "registered", "username": creds.Username})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	id, err := h.Accounts.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.writeAppError(w, err, "login failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials
	if h.Accounts == nil {
		h.writeError(w, http.StatusServiceUnavailable, "accounts are disabled")
		return creds, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return creds, false
	}
	return creds, true
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.Cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) countQuery(resultType string) {
	if h.Metrics != nil {
		h.Metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to a status. Client errors carry their message;
// server errors are reported with fallback only.
func (h *Handler) writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatusCode(err)
	if errors.Is(err, context.Canceled) {
		// The client went away; nobody reads this.
		status = 499
	}
	message := fallback
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case status < http.StatusInternalServerError:
		message = err.Error()
	case status == http.StatusServiceUnavailable:
		message = "service overloaded, retry later"
	case status == http.StatusGatewayTimeout:
		message = "request timed out"
	}
	h.writeError(w, status, message)
}
