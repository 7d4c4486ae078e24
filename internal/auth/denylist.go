package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryDenylist keeps revoked token ids in process memory. Expired entries
// are dropped lazily on lookup.
type MemoryDenylist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.RLock()
	until, ok := d.revoked[tokenID]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if d.now().After(until) {
		d.mu.Lock()
		delete(d.revoked, tokenID)
		d.mu.Unlock()
		return false, nil
	}
	return true, nil
}

const redisKeyPrefix = "auth:revoked:"

// RedisDenylist stores revoked token ids as keys expiring with the token.
type RedisDenylist struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, redisKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
