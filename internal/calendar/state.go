package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard/internal/domain"
)

// StateStore maps a one-shot OAuth state value to the owner who started the
// flow. Take consumes the entry; unknown or expired states are ErrNotFound.
type StateStore interface {
	Put(ctx context.Context, state, ownerID string, ttl time.Duration) error
	Take(ctx context.Context, state string) (string, error)
}

type memoryEntry struct {
	ownerID string
	expires time.Time
}

type MemoryStateStore struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: map[string]memoryEntry{}}
}

func (m *MemoryStateStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStateStore) Put(_ context.Context, state, ownerID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]memoryEntry{}
	}
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[state] = memoryEntry{ownerID: ownerID, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryStateStore) Take(_ context.Context, state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[state]
	delete(m.entries, state)
	if !ok || m.now().After(e.expires) {
		return "", domain.ErrNotFound
	}
	return e.ownerID, nil
}

// RedisStateStore shares OAuth state across server instances.
type RedisStateStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStateStore(ctx context.Context, url, prefix string) (*RedisStateStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStateStore{Client: client, Prefix: prefix}, nil
}

func (r *RedisStateStore) key(state string) string {
	return r.Prefix + ":oauth-state:" + state
}

func (r *RedisStateStore) Put(ctx context.Context, state, ownerID string, ttl time.Duration) error {
	return r.Client.Set(ctx, r.key(state), ownerID, ttl).Err()
}

func (r *RedisStateStore) Take(ctx context.Context, state string) (string, error) {
	owner, err := r.Client.GetDel(ctx, r.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	return owner, err
}

func (r *RedisStateStore) Close() error {
	return r.Client.Close()
}
