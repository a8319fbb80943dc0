package triage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Ledger remembers item keys whose alert has been committed, so re-delivered
// items skip the store. It is a fast path only; the store's natural-key upsert
// stays authoritative.
type Ledger interface {
	Committed(ctx context.Context, key string) (bool, error)
	MarkCommitted(ctx context.Context, key string, alertID uuid.UUID) error
}

// RedisLedger shares committed keys across pipeline instances
type RedisLedger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisLedger creates a ledger storing keys as <prefix><platform:id> with ttl
func NewRedisLedger(client redis.Cmdable, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{client: client, prefix: "patrol:committed:", ttl: ttl}
}

// Committed reports whether key was marked by any instance within ttl
func (l *RedisLedger) Committed(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCommitted records key. The first writer wins; later marks are no-ops.
func (l *RedisLedger) MarkCommitted(ctx context.Context, key string, alertID uuid.UUID) error {
	return l.client.SetNX(ctx, l.prefix+key, alertID.String(), l.ttl).Err()
}

// keyLocks serializes work per item key. Entries are dropped once unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// lock acquires key and returns its unlock func
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// committedCache is the in-process layer in front of the Ledger
type committedCache struct {
	cache *lru.Cache[string, uuid.UUID]
}

func newCommittedCache(capacity int) *committedCache {
	if capacity <= 0 {
		capacity = 10000
	}
	cache, _ := lru.New[string, uuid.UUID](capacity)
	return &committedCache{cache: cache}
}

func (c *committedCache) get(key string) (uuid.UUID, bool) {
	return c.cache.Get(key)
}

func (c *committedCache) add(key string, id uuid.UUID) {
	c.cache.Add(key, id)
}

func (c *committedCache) len() int {
	return c.cache.Len()
}
