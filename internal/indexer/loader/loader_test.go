package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store/memstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
)

type sliceSource struct {
	rows []Row
	err  error
}

func (s sliceSource) Rows(ctx context.Context, fn func(Row) error) error {
	for _, r := range s.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return s.err
}

func TestRun_IndexesAllRows(t *testing.T) {
	engine := autocomplete.New(memstore.New(), autocomplete.Config{})
	var rows []Row
	for i := range 50 {
		rows = append(rows, Row{
			ID:       fmt.Sprintf("id-%02d", i),
			Term:     fmt.Sprintf("jazz standard %d", i),
			Data:     json.RawMessage(`{"n":1}`),
			Priority: float64(i),
		})
	}

	stats, err := New(engine, 4).Run(context.Background(), sliceSource{rows: rows})
	require.NoError(t, err)
	assert.EqualValues(t, 50, stats.Indexed)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Failed)

	results, err := engine.Search(context.Background(), "jaz", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "id-49", results[0].ID)
	assert.JSONEq(t, `{"n":1}`, string(results[0].Data))
}

func TestRun_SkipsInvalidRows(t *testing.T) {
	engine := autocomplete.New(memstore.New(), autocomplete.Config{})
	rows := []Row{
		{ID: "1", Term: "blues"},
		{ID: "", Term: "no id"},
		{ID: "3", Term: "   "},
		{ID: "4", Term: "東京"},
	}

	stats, err := New(engine, 2).Run(context.Background(), sliceSource{rows: rows})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Indexed)
	assert.EqualValues(t, 3, stats.Skipped)

	results, err := engine.Search(context.Background(), "blu", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "null", string(results[0].Data))
}

func TestRun_StoreErrorAborts(t *testing.T) {
	s := memstore.New()
	s.Close()
	engine := autocomplete.New(s, autocomplete.Config{})
	rows := []Row{{ID: "1", Term: "rock"}, {ID: "2", Term: "pop"}}

	stats, err := New(engine, 1).Run(context.Background(), sliceSource{rows: rows})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Zero(t, stats.Indexed)
	assert.GreaterOrEqual(t, stats.Failed, int64(1))
}

func TestRun_SourceError(t *testing.T) {
	engine := autocomplete.New(memstore.New(), autocomplete.Config{})
	boom := errors.New("connection reset")

	stats, err := New(engine, 2).Run(context.Background(), sliceSource{rows: []Row{{ID: "1", Term: "soul"}}, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, stats.Indexed)
}

func TestQuoteTable(t *testing.T) {
	got, err := quoteTable("public.autocomplete_terms")
	require.NoError(t, err)
	assert.Equal(t, `"public"."autocomplete_terms"`, got)

	got, err = quoteTable(`we"ird`)
	require.NoError(t, err)
	assert.Equal(t, `"we""ird"`, got)

	for _, bad := range []string{"", "a..b", "a.b.c"} {
		_, err := quoteTable(bad)
		assert.Error(t, err, bad)
	}
}
