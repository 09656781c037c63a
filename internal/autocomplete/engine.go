// Package autocomplete implements prefix search over a ranked key-value
// store. Index writes every prefix of every word of a term into its own
// ranked set, scored by the caller's priority, and stores the term and
// payload once in a shared metadata hash. Search normalizes a query, reads
// the ranked set named by it, and joins the identifiers with their
// metadata.
package autocomplete

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete/normalizer"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete/prefix"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/tracing"
)

// Item is one term to index.
type Item struct {
	ID   string
	Term string
	// Data is any JSON-serialisable payload returned with search results.
	Data any
	// Priority orders results; higher first. Zero is the default.
	Priority float64
}

// Result is one search hit.
type Result struct {
	ID   string          `json:"id"`
	Term string          `json:"term"`
	Data json.RawMessage `json:"data"`
}

// Observer receives per-operation measurements. *metrics.Metrics
// implements it.
type Observer interface {
	ObserveIndex(prefixes int, err error)
	ObserveSearch(results int, elapsed time.Duration, err error)
}

type Config struct {
	Namespace    string
	DefaultLimit int
	Observer     Observer
}

type Engine struct {
	rank         *RankIndex
	meta         *MetadataIndex
	store        store.Store
	namespace    string
	defaultLimit int
	observer     Observer
	logger       *slog.Logger
}

func New(s store.Store, cfg Config) *Engine {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &Engine{
		rank:         NewRankIndex(s, cfg.Namespace),
		meta:         NewMetadataIndex(s, cfg.Namespace),
		store:        s,
		namespace:    cfg.Namespace,
		defaultLimit: cfg.DefaultLimit,
		observer:     cfg.Observer,
		logger:       slog.Default().With("component", "autocomplete", "namespace", cfg.Namespace),
	}
}

func (e *Engine) Namespace() string  { return e.namespace }
func (e *Engine) DefaultLimit() int  { return e.defaultLimit }
func (e *Engine) Store() store.Store { return e.store }

// Index makes item findable under every prefix of every word of its
// normalized term. All rank entries and the metadata record are committed
// in one atomic batch. Re-indexing an ID replaces its score under each
// prefix and its metadata record.
func (e *Engine) Index(ctx context.Context, item Item) (err error) {
	var prefixes []string
	defer func() {
		if e.observer != nil {
			e.observer.ObserveIndex(len(prefixes), err)
		}
	}()

	if strings.TrimSpace(item.Term) == "" {
		return apperrors.Invalidf("term is empty")
	}
	if item.ID == "" {
		return apperrors.Invalidf("id is empty")
	}
	if math.IsNaN(item.Priority) || math.IsInf(item.Priority, 0) {
		return apperrors.Invalidf("priority must be finite, got %v", item.Priority)
	}
	normalized := normalizer.Normalize(item.Term)
	prefixes = prefix.Expand(normalized)
	if len(prefixes) == 0 {
		return apperrors.Invalidf("term %q has no indexable characters", item.Term)
	}
	data, err := json.Marshal(item.Data)
	if err != nil {
		return apperrors.Invalidf("data for id %s is not serialisable: %v", item.ID, err)
	}

	b := store.NewBatch(len(prefixes) + 1)
	for _, p := range prefixes {
		e.rank.Upsert(b, p, item.ID, item.Priority)
	}
	if err := e.meta.Put(b, Record{ID: item.ID, Term: item.Term, Data: data}); err != nil {
		return apperrors.Invalidf("%v", err)
	}
	if err := e.store.Commit(ctx, b); err != nil {
		e.logger.Error("index commit failed", "id", item.ID, "prefixes", len(prefixes), "error", err)
		return err
	}
	e.logger.Debug("term indexed",
		"id", item.ID,
		"normalized", normalized,
		"prefixes", len(prefixes),
		"priority", item.Priority,
	)
	return nil
}

// Search returns up to limit items indexed under the normalized query, in
// priority order. The query is used as one prefix as-is; it is not split
// into words. No match is an empty slice, not an error.
func (e *Engine) Search(ctx context.Context, query string, limit int) (results []Result, err error) {
	start := time.Now()
	defer func() {
		if e.observer != nil {
			e.observer.ObserveSearch(len(results), time.Since(start), err)
		}
	}()

	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Invalidf("query is empty")
	}
	if limit < 1 {
		return nil, apperrors.Invalidf("limit must be a positive integer, got %d", limit)
	}
	key := normalizer.Normalize(query)
	if key == "" {
		return []Result{}, nil
	}

	_, span := tracing.StartChildSpan(ctx, "autocomplete.topn")
	span.SetAttr("prefix", key)
	ids, err := e.rank.TopN(ctx, key, limit)
	span.SetAttr("hits", len(ids))
	span.End()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Result{}, nil
	}

	_, span = tracing.StartChildSpan(ctx, "autocomplete.metadata")
	records, err := e.meta.GetMany(ctx, ids)
	span.SetAttr("found", len(records))
	span.End()
	if err != nil {
		return nil, err
	}

	results = make([]Result, 0, len(ids))
	for _, id := range ids {
		rec, ok := records[id]
		if !ok {
			e.logger.Debug("ranked id has no metadata", "id", id, "prefix", key)
			continue
		}
		results = append(results, Result{ID: id, Term: rec.Term, Data: rec.Data})
	}
	return results, nil
}

// Complete is Search with the engine's default limit.
func (e *Engine) Complete(ctx context.Context, query string) ([]Result, error) {
	return e.Search(ctx, query, e.defaultLimit)
}

// Ping checks the backing store.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
