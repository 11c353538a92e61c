package repository

import (
	"context"
	"fmt"
	"time"

	"go-content-dashboard/internal/cache"
	"go-content-dashboard/internal/metrics"
)

const deniedTokenKeyPrefix = "denylist:token:"

// RedisDenylist records revoked token ids until the token would have expired
// anyway, so the key set never outgrows the set of live tokens.
type RedisDenylist struct {
	cache *cache.Client
}

func NewRedisDenylist(cache *cache.Client) *RedisDenylist {
	return &RedisDenylist{cache: cache}
}

func (d *RedisDenylist) Deny(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	defer metrics.ObserveStore(ctx, "denylist.deny")()

	if err := d.cache.Set(ctx, deniedTokenKeyPrefix+tokenID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("deny token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	defer metrics.ObserveStore(ctx, "denylist.check")()

	data, err := d.cache.Get(ctx, deniedTokenKeyPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("check denied token: %w", err)
	}
	return data != nil, nil
}
