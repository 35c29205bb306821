// Package kv holds the short-lived keyed state shared between API replicas:
// restore confirmations and scheduler pass leases.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

const (
	confirmationPrefix = "restore-confirmation:"
	leasePrefix        = "lease:"
)

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Store keeps string values with a TTL and hands each one out at most once.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Take returns the value and deletes it atomically, or ErrNotFound.
	Take(ctx context.Context, key string) (string, error)
}

// Lease grants a named lease to the first caller until it expires.
type Lease interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, confirmationPrefix+key, value, ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.GetDel(ctx, confirmationPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

type RedisLease struct {
	rdb *redis.Client
}

func NewRedisLease(rdb *redis.Client) *RedisLease {
	return &RedisLease{rdb: rdb}
}

// Acquire sets the lease key only if it does not exist yet.
func (l *RedisLease) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, leasePrefix+name, holder, ttl).Result()
}

type entry struct {
	value   string
	expires time.Time
}

// Memory implements Store and Lease in process, for single-instance runs and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{entries: make(map[string]entry), now: now}
}

func (m *Memory) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[confirmationPrefix+key] = entry{value: value, expires: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(confirmationPrefix + key)
	if !ok {
		return "", ErrNotFound
	}
	delete(m.entries, confirmationPrefix+key)
	return e.value, nil
}

func (m *Memory) Acquire(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(leasePrefix + name); ok {
		return false, nil
	}
	m.entries[leasePrefix+name] = entry{value: holder, expires: m.now().Add(ttl)}
	return true, nil
}

// live must be called with mu held.
func (m *Memory) live(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}
