// Package store defines the backing-store contract consumed by the
// autocomplete engine: ranked sets, a field/value hash and an atomic write
// batch. Implementations live in the memstore and redisstore subpackages.
package store

import (
	"context"
	"fmt"
)

// Store is a ranked key-value store. Implementations must apply a Batch
// all-or-nothing and must be safe for concurrent use.
type Store interface {
	// Commit applies every write queued in b as one atomic unit.
	Commit(ctx context.Context, b *Batch) error
	// TopN returns at most n members of the ranked set at key, highest
	// score first. A missing key yields an empty slice.
	TopN(ctx context.Context, key string, n int) ([]string, error)
	// GetMany returns the values of the requested fields of hash. Fields
	// that do not exist are absent from the result.
	GetMany(ctx context.Context, hash string, fields []string) (map[string][]byte, error)
	Ping(ctx context.Context) error
}

// OpKind identifies the type of a queued write.
type OpKind int

const (
	OpUpsert OpKind = iota
	OpPut
)

func (k OpKind) String() string {
	switch k {
	case OpUpsert:
		return "upsert"
	case OpPut:
		return "put"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is a single queued write. Upserts use Key, Member and Score; puts use
// Key as the hash name, Member as the field and Value.
type Op struct {
	Kind   OpKind
	Key    string
	Member string
	Score  float64
	Value  []byte
}

// Batch is an ordered list of writes committed together by Store.Commit.
// A Batch is not safe for concurrent mutation.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch with room for n writes.
func NewBatch(n int) *Batch {
	return &Batch{ops: make([]Op, 0, n)}
}

// Upsert queues setting member's score in the ranked set at key.
func (b *Batch) Upsert(key, member string, score float64) {
	b.ops = append(b.ops, Op{Kind: OpUpsert, Key: key, Member: member, Score: score})
}

// Put queues storing value under field of hash.
func (b *Batch) Put(hash, field string, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpPut, Key: hash, Member: field, Value: value})
}

// Ops returns the queued writes in order.
func (b *Batch) Ops() []Op {
	return b.ops
}

func (b *Batch) Len() int {
	return len(b.ops)
}
