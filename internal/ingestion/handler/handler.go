package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
)

const maxBodyBytes = 128 * 1024

type Indexer interface {
	Index(ctx context.Context, item autocomplete.Item) error
}

type Handler struct {
	indexer   Indexer
	publisher *publisher.Publisher
	logger    *slog.Logger
}

// New creates a term handler. pub may be nil, in which case the async
// endpoint answers 503.
func New(indexer Indexer, pub *publisher.Publisher) *Handler {
	return &Handler{
		indexer:   indexer,
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Index indexes the posted term synchronously.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.indexer.Index(ctx, req.Item()); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("indexing failed",
			"id", req.ID,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, publicMessage(err, "indexing failed"))
		return
	}
	log.Info("term indexed", "id", req.ID, "priority", req.Priority)
	h.writeJSON(w, http.StatusCreated, &ingestion.IndexResponse{ID: req.ID, Status: ingestion.StatusIndexed})
}

// Enqueue publishes the posted term to the Kafka feed.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	if h.publisher == nil {
		h.writeError(w, http.StatusServiceUnavailable, "async indexing is disabled")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	resp, err := h.publisher.Enqueue(ctx, req)
	if err != nil {
		log.Error("enqueue failed", "id", req.ID, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "enqueue failed")
		return
	}
	log.Info("term queued", "id", req.ID)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ingestion.IndexRequest, bool) {
	var req ingestion.IndexRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if err := validator.ValidateIndexRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return nil, false
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// publicMessage exposes invalid-input reasons to the caller and hides
// everything else behind fallback.
func publicMessage(err error, fallback string) string {
	if errors.Is(err, apperrors.ErrInvalidInput) {
		return err.Error()
	}
	return fallback
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
