package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	pkgredis "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/redis"
)

// KeyValidator resolves a raw key to its KeyInfo.
type KeyValidator interface {
	Validate(ctx context.Context, rawKey string) (*KeyInfo, error)
}

// negative is cached for unknown keys so a client retrying a bad key does
// not reach Postgres on every request.
const negative = "-"

// lookupTimeout bounds a shared lookup, which is not cancelled when the
// caller that started it goes away.
const lookupTimeout = 5 * time.Second

// CachedValidator fronts a KeyValidator with a Redis cache keyed by key
// digest. Concurrent misses for one key share a single lookup.
type CachedValidator struct {
	next   KeyValidator
	client *pkgredis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedValidator caches lookups under "<namespace>:apikey:<digest>".
func NewCachedValidator(next KeyValidator, client *pkgredis.Client, namespace string, ttl time.Duration) *CachedValidator {
	return &CachedValidator{
		next:   next,
		client: client,
		prefix: namespace + ":apikey:",
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default().With("component", "apikey-cache"),
	}
}

func (c *CachedValidator) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	key := c.prefix + HashKey(rawKey)
	if info, ok, err := c.get(ctx, key); ok {
		c.hits.Add(1)
		return info, err
	}
	c.misses.Add(1)

	ch := c.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		info, err := c.next.Validate(lctx, rawKey)
		switch {
		case err == nil:
			c.set(lctx, key, info)
		case errors.Is(err, ErrInvalidKey):
			c.set(lctx, key, nil)
		}
		return info, err
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeyInfo), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Forget drops the cached entry for a key digest, e.g. after revocation.
func (c *CachedValidator) Forget(ctx context.Context, keyHash string) error {
	_, err := c.client.Del(ctx, c.prefix+keyHash)
	return err
}

// Stats returns cache hit and miss counts since creation.
func (c *CachedValidator) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// get reports ok when the cache answered, with either a KeyInfo or the
// cached rejection.
func (c *CachedValidator) get(ctx context.Context, key string) (*KeyInfo, bool, error) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "error", err)
		}
		return nil, false, nil
	}
	if data == negative {
		return nil, true, ErrInvalidKey
	}
	var info KeyInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		c.logger.Error("cache unmarshal failed", "error", err)
		return nil, false, nil
	}
	if info.Expired(c.now()) {
		return nil, true, ErrExpiredKey
	}
	return &info, true, nil
}

func (c *CachedValidator) set(ctx context.Context, key string, info *KeyInfo) {
	value := negative
	if info != nil {
		data, err := json.Marshal(info)
		if err != nil {
			c.logger.Error("cache marshal failed", "error", err)
			return
		}
		value = string(data)
	}
	if err := c.client.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Error("cache set failed", "error", err)
	}
}
