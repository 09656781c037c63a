// Package redisstore implements store.Store on Redis: ranked sets are
// sorted sets, the metadata store is a hash, and a batch is one Lua script
// that checks every key's type before writing any of them.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/redis"
)

type Store struct {
	client *pkgredis.Client
}

func New(client *pkgredis.Client) *Store {
	return &Store{client: client}
}

// commitScript applies a batch. KEYS[i] is the target of op i; ARGV holds
// (kind, member, score-or-value) triples. Every key's type is checked
// before the first write, so a batch that would hit WRONGTYPE part way
// writes nothing.
var commitScript = redis.NewScript(`
for i = 1, #KEYS do
  local want = 'hash'
  if ARGV[3*i-2] == 'z' then want = 'zset' end
  local t = redis.call('TYPE', KEYS[i])
  if type(t) == 'table' then t = t.ok end
  if t ~= 'none' and t ~= want then
    return redis.error_reply('WRONGTYPE ' .. KEYS[i] .. ' holds ' .. t .. ', batch needs ' .. want)
  end
end
for i = 1, #KEYS do
  if ARGV[3*i-2] == 'z' then
    redis.call('ZADD', KEYS[i], ARGV[3*i], ARGV[3*i-1])
  else
    redis.call('HSET', KEYS[i], ARGV[3*i-1], ARGV[3*i])
  end
end
return #KEYS
`)

// Commit applies b through commitScript, all or nothing.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	keys := make([]string, 0, b.Len())
	args := make([]any, 0, 3*b.Len())
	for _, op := range b.Ops() {
		switch op.Kind {
		case store.OpUpsert:
			args = append(args, "z", op.Member, op.Score)
		case store.OpPut:
			args = append(args, "h", op.Member, op.Value)
		default:
			return fmt.Errorf("%w: unknown op %s", apperrors.ErrStoreProtocol, op.Kind)
		}
		keys = append(keys, op.Key)
	}
	_, err := s.client.RunScript(ctx, commitScript, keys, args...)
	return classify("commit", err)
}

func (s *Store) TopN(ctx context.Context, key string, n int) ([]string, error) {
	if n < 1 {
		return []string{}, nil
	}
	members, err := s.client.ZRevRange(ctx, key, 0, int64(n-1))
	if err != nil {
		return nil, classify("zrevrange "+key, err)
	}
	return members, nil
}

func (s *Store) GetMany(ctx context.Context, hash string, fields []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(fields))
	if len(fields) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, hash, fields...)
	if err != nil {
		return nil, classify("hmget "+hash, err)
	}
	for i, v := range vals {
		switch val := v.(type) {
		case string:
			out[fields[i]] = []byte(val)
		case []byte:
			out[fields[i]] = val
		}
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return classify("ping", s.client.Ping(ctx))
}

// classify maps server error replies to ErrStoreProtocol and everything
// else (dial, I/O, timeouts, closed pool, context) to ErrStoreUnavailable.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case pkgredis.IsReplyError(err):
		return fmt.Errorf("%w: %s: %w", apperrors.ErrStoreProtocol, op, err)
	case errors.Is(err, apperrors.ErrStoreProtocol), errors.Is(err, apperrors.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", apperrors.ErrStoreUnavailable, op, err)
	}
}

var _ store.Store = (*Store)(nil)
