// Package server exposes the query engine over HTTP: ranked search,
// prefix autocompletion, document lookup, and cache administration.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/docsearch-io/docsearch/internal/analytics"
	"github.com/docsearch-io/docsearch/internal/cache"
	"github.com/docsearch-io/docsearch/internal/engine"
	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
	"github.com/docsearch-io/docsearch/pkg/logger"
	"github.com/docsearch-io/docsearch/pkg/metrics"
	"github.com/docsearch-io/docsearch/pkg/middleware"
)

// SearchResponse is the JSON body of /api/v1/search.
type SearchResponse struct {
	Query     string          `json:"query"`
	Kind      string          `json:"kind"`
	TotalHits int             `json:"total_hits"`
	Results   []engine.Result `json:"results"`
}

// SuggestResponse is the JSON body of /api/v1/suggest.
type SuggestResponse struct {
	Prefix      string   `json:"prefix"`
	Suggestions []string `json:"suggestions"`
}

// DocumentResponse is the JSON body of /api/v1/documents/{id}.
type DocumentResponse struct {
	DocID         int    `json:"doc_id"`
	Title         string `json:"title"`
	Path          string `json:"path"`
	ContentLength int    `json:"content_length"`
}

// Handler serves the query-facing API. Cache, collector, and metrics are
// optional; a nil value disables that concern.
type Handler struct {
	engine       *engine.Engine
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	suggestLimit int
	logger       *slog.Logger
}

func New(eng *engine.Engine, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultLimit, maxResults, suggestLimit int) *Handler {
	return &Handler{
		engine:       eng,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		suggestLimit: suggestLimit,
		logger:       logger.WithComponent("search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	kind := engine.Classify(query)
	var results []engine.Result
	cacheHit := false

	if h.cache != nil {
		results, cacheHit = h.cache.GetOrCompute(ctx, query, limit, func() []engine.Result {
			ranked, _ := h.engine.Search(query)
			return ranked
		})
	} else {
		results, _ = h.engine.Search(query)
	}

	totalHits := len(results)
	if len(results) > limit {
		results = results[:limit]
	}
	latencyMs := time.Since(start).Milliseconds()

	if h.metrics != nil {
		outcome := "results"
		if totalHits == 0 {
			outcome = "zero_result"
		}
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(string(kind), outcome).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(results)))
	}

	log.Info("search completed",
		"query", query,
		"kind", string(kind),
		"total_hits", totalHits,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	if h.collector != nil {
		eventType := analytics.EventSearch
		if totalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			Kind:      string(kind),
			TotalHits: totalHits,
			Returned:  len(results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, &SearchResponse{
		Query:     query,
		Kind:      string(kind),
		TotalHits: totalHits,
		Results:   results,
	})
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	limit := h.suggestLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	suggestions := []string{}
	if prefix != "" {
		suggestions = h.engine.Suggest(prefix, limit)
	}
	if h.metrics != nil {
		h.metrics.SuggestRequestsTotal.Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      analytics.EventSuggest,
			Query:     prefix,
			Returned:  len(suggestions),
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}

	h.writeJSON(w, http.StatusOK, &SuggestResponse{
		Prefix:      prefix,
		Suggestions: suggestions,
	})
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	docID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || docID < 1 {
		h.writeError(w, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "document id must be a positive integer"))
		return
	}
	doc, ok := h.engine.Document(docID)
	if !ok {
		h.writeError(w, dserrors.Newf(dserrors.ErrDocumentNotFound, http.StatusNotFound, "document %d not found", docID))
		return
	}
	h.writeJSON(w, http.StatusOK, &DocumentResponse{
		DocID:         doc.ID,
		Title:         doc.Title,
		Path:          doc.Path,
		ContentLength: doc.ContentLength,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
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
	if h.cache == nil {
		h.writeError(w, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, dserrors.New(dserrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err onto an HTTP status via the error taxonomy and writes
// a JSON error body. AppError messages are surfaced verbatim.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *dserrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, dserrors.HTTPStatusCode(err), map[string]string{"error": message})
}
