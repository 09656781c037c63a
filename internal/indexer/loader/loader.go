// Package loader rebuilds the autocomplete index from a bulk source such as
// a Postgres table. Rows are indexed concurrently by a bounded worker pool.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
)

const progressEvery = 1000

type Indexer interface {
	Index(ctx context.Context, item autocomplete.Item) error
}

// Stats summarises a reindex run. Skipped rows were rejected as invalid
// input; Failed rows hit a store error and aborted the run.
type Stats struct {
	Indexed  int64         `json:"indexed"`
	Skipped  int64         `json:"skipped"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type Loader struct {
	indexer Indexer
	workers int
	logger  *slog.Logger
}

func New(indexer Indexer, workers int) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		indexer: indexer,
		workers: workers,
		logger:  slog.Default().With("component", "reindex"),
	}
}

// Run indexes every row of src. Invalid rows are counted and skipped. The
// first store error cancels the remaining work and is returned with the
// partial stats.
func (l *Loader) Run(ctx context.Context, src Source) (Stats, error) {
	start := time.Now()
	var indexed, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	readErr := src.Rows(gctx, func(row Row) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			err := l.indexer.Index(gctx, row.request().Item())
			switch {
			case err == nil:
				if n := indexed.Add(1); n%progressEvery == 0 {
					l.logger.Info("reindex progress", "indexed", n, "skipped", skipped.Load())
				}
				return nil
			case errors.Is(err, apperrors.ErrInvalidInput):
				skipped.Add(1)
				l.logger.Warn("skipping row", "id", row.ID, "error", err)
				return nil
			default:
				failed.Add(1)
				return fmt.Errorf("indexing row %s: %w", row.ID, err)
			}
		})
		return nil
	})
	workErr := g.Wait()

	stats := Stats{
		Indexed:  indexed.Load(),
		Skipped:  skipped.Load(),
		Failed:   failed.Load(),
		Duration: time.Since(start),
	}
	err := workErr
	if err == nil {
		err = readErr
	}
	if err != nil {
		l.logger.Error("reindex aborted",
			"indexed", stats.Indexed,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
			"error", err,
		)
		return stats, err
	}
	l.logger.Info("reindex complete",
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}
