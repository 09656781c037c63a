package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/tracing"
)

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]autocomplete.Result, error)
}

// SearchResponse is the JSON body of a successful autocomplete request.
type SearchResponse struct {
	Query   string                `json:"query"`
	Limit   int                   `json:"limit"`
	Results []autocomplete.Result `json:"results"`
}

// DefaultSharedTimeout bounds one coalesced store round trip, which runs
// detached from any single caller's cancellation.
const DefaultSharedTimeout = 5 * time.Second

type Handler struct {
	searcher      Searcher
	defaultLimit  int
	maxLimit      int
	traceSpans    bool
	sharedTimeout time.Duration
	group         singleflight.Group
	logger        *slog.Logger
}

func New(searcher Searcher, defaultLimit, maxLimit int, traceSpans bool) *Handler {
	return &Handler{
		searcher:      searcher,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		traceSpans:    traceSpans,
		sharedTimeout: DefaultSharedTimeout,
		logger:        slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/autocomplete?q=<query>&limit=<n>. Identical
// concurrent requests share one store round trip. The shared search does
// not inherit the first caller's cancellation; each caller stops waiting
// when its own context ends.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxLimit {
			parsed = h.maxLimit
		}
		limit = parsed
	}

	ctx, span := tracing.StartSpan(ctx, "autocomplete.search", middleware.GetRequestID(ctx))
	span.SetAttr("limit", limit)

	key := strconv.Itoa(limit) + "\x00" + query
	ch := h.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.sharedTimeout)
		defer cancel()
		return h.searcher.Search(sctx, query, limit)
	})
	var (
		val    any
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		val, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}
	span.SetAttr("shared", shared)
	span.End()
	if h.traceSpans {
		span.Log(log)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Debug("client went away before results were ready", "query", query)
		return
	}
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "query", query, "error", err, "status_code", statusCode)
		msg := "search failed"
		if errors.Is(err, apperrors.ErrInvalidInput) {
			msg = err.Error()
		}
		h.writeError(w, statusCode, msg)
		return
	}
	results := val.([]autocomplete.Result)

	log.Info("search completed",
		"query", query,
		"limit", limit,
		"returned", len(results),
		"shared", shared,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, &SearchResponse{Query: query, Limit: limit, Results: results})
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
