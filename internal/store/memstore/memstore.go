// Package memstore is an in-process implementation of store.Store. It backs
// unit tests and benchmarks, and can serve small embedded indexes that do
// not need Redis.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
)

type Store struct {
	mu     sync.RWMutex
	ranked map[string]map[string]float64
	hashes map[string]map[string][]byte
	closed bool
}

func New() *Store {
	return &Store{
		ranked: make(map[string]map[string]float64),
		hashes: make(map[string]map[string][]byte),
	}
}

// Commit validates the whole batch, then applies it under one write lock.
// A batch that fails validation leaves the store untouched.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", apperrors.ErrStoreUnavailable)
	}
	for _, op := range b.Ops() {
		if err := s.checkType(op); err != nil {
			return err
		}
	}
	for _, op := range b.Ops() {
		switch op.Kind {
		case store.OpUpsert:
			set, ok := s.ranked[op.Key]
			if !ok {
				set = make(map[string]float64)
				s.ranked[op.Key] = set
			}
			set[op.Member] = op.Score
		case store.OpPut:
			h, ok := s.hashes[op.Key]
			if !ok {
				h = make(map[string][]byte)
				s.hashes[op.Key] = h
			}
			v := make([]byte, len(op.Value))
			copy(v, op.Value)
			h[op.Member] = v
		}
	}
	return nil
}

// checkType mirrors Redis WRONGTYPE: a key holds either a ranked set or a
// hash, never both.
func (s *Store) checkType(op store.Op) error {
	switch op.Kind {
	case store.OpUpsert:
		if _, ok := s.hashes[op.Key]; ok {
			return fmt.Errorf("%w: key %s holds a hash", apperrors.ErrStoreProtocol, op.Key)
		}
	case store.OpPut:
		if _, ok := s.ranked[op.Key]; ok {
			return fmt.Errorf("%w: key %s holds a ranked set", apperrors.ErrStoreProtocol, op.Key)
		}
	default:
		return fmt.Errorf("%w: unknown op %s", apperrors.ErrStoreProtocol, op.Kind)
	}
	return nil
}

// TopN orders by score descending, then by member descending, matching
// ZREVRANGE.
func (s *Store) TopN(ctx context.Context, key string, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", apperrors.ErrStoreUnavailable)
	}
	set := s.ranked[key]
	if n < 1 || len(set) == 0 {
		return []string{}, nil
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := set[members[i]], set[members[j]]
		if si != sj {
			return si > sj
		}
		return members[i] > members[j]
	})
	if len(members) > n {
		members = members[:n]
	}
	return members, nil
}

func (s *Store) GetMany(ctx context.Context, hash string, fields []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", apperrors.ErrStoreUnavailable)
	}
	out := make(map[string][]byte, len(fields))
	h := s.hashes[hash]
	for _, f := range fields {
		if v, ok := h[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", apperrors.ErrStoreUnavailable)
	}
	return nil
}

// Score returns member's score in the ranked set at key.
func (s *Store) Score(key, member string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.ranked[key][member]
	return score, ok
}

// Card returns the number of members in the ranked set at key.
func (s *Store) Card(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ranked[key])
}

// Keys returns the number of ranked sets and hashes held.
func (s *Store) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ranked) + len(s.hashes)
}

// Close makes every later call fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ store.Store = (*Store)(nil)
