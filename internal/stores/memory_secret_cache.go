package stores

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
)

const memoryLockStripes = 64

// MemorySecretCache is the single-process SecretCache used when no Redis
// client is configured. go-cache hides expired items from Get; the striped
// locks make Remove a compare-and-delete per key.
type MemorySecretCache struct {
	c     *gocache.Cache
	locks [memoryLockStripes]sync.Mutex
}

func NewMemorySecretCache(cleanupInterval time.Duration) *MemorySecretCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &MemorySecretCache{
		c: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *MemorySecretCache) key(purpose, email string) string {
	return purpose + ":" + email
}

func (m *MemorySecretCache) lock(key string) *sync.Mutex {
	return &m.locks[xxhash.Sum64String(key)%memoryLockStripes]
}

func (m *MemorySecretCache) Put(_ context.Context, purpose, email string, secret []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("secret ttl must be > 0")
	}

	key := m.key(purpose, email)
	stored := make([]byte, len(secret))
	copy(stored, secret)

	mu := m.lock(key)
	mu.Lock()
	m.c.Set(key, stored, ttl)
	mu.Unlock()

	return nil
}

func (m *MemorySecretCache) Get(_ context.Context, purpose, email string) ([]byte, bool, error) {
	key := m.key(purpose, email)

	mu := m.lock(key)
	mu.Lock()
	v, ok := m.c.Get(key)
	mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	stored, _ := v.([]byte)
	secret := make([]byte, len(stored))
	copy(secret, stored)
	return secret, true, nil
}

func (m *MemorySecretCache) Remove(_ context.Context, purpose, email string, secret []byte) (bool, error) {
	key := m.key(purpose, email)

	mu := m.lock(key)
	mu.Lock()
	defer mu.Unlock()

	v, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}
	if stored, _ := v.([]byte); !bytes.Equal(stored, secret) {
		return false, nil
	}
	m.c.Delete(key)
	return true, nil
}

// Len reports the number of stored entries, including expired ones not yet
// evicted by the janitor.
func (m *MemorySecretCache) Len() int {
	return m.c.ItemCount()
}
