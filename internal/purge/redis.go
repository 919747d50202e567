package purge

import (
	"context"
	"errors"
	"fmt"

	"github.com/assetwatch/assetwatch/internal/cache"
)

// ErrQuotaExceeded is returned when the shared purge quota is exhausted.
var ErrQuotaExceeded = errors.New("purge quota exceeded")

// AssetCache drops cached copies of an asset.
type AssetCache interface {
	PurgeAsset(ctx context.Context, path string) error
}

// NewRedisPurger purges the Redis asset cache.
func NewRedisPurger(c AssetCache) Purger {
	return Func(c.PurgeAsset)
}

// QuotaTaker hands out tokens from a bucket shared across instances.
type QuotaTaker interface {
	TakePurgeQuota(ctx context.Context, backend string, ratePerSecond float64, burst int) (*cache.QuotaResult, error)
}

// Quota guards a backend with a shared token bucket so that all instances
// together stay under the backend's request limit.
type Quota struct {
	next          Purger
	quota         QuotaTaker
	backend       string
	ratePerSecond float64
	burst         int
}

// NewQuota wraps next with the shared bucket named backend.
func NewQuota(next Purger, quota QuotaTaker, backend string, ratePerSecond float64, burst int) *Quota {
	return &Quota{
		next:          next,
		quota:         quota,
		backend:       backend,
		ratePerSecond: ratePerSecond,
		burst:         burst,
	}
}

// Purge takes a token and calls the wrapped purger, or fails with
// ErrQuotaExceeded without calling it.
func (q *Quota) Purge(ctx context.Context, path string) error {
	res, err := q.quota.TakePurgeQuota(ctx, q.backend, q.ratePerSecond, q.burst)
	if err != nil {
		return fmt.Errorf("take %s quota: %w", q.backend, err)
	}
	if !res.Allowed {
		return fmt.Errorf("%s: %w (retry after %s)", q.backend, ErrQuotaExceeded, res.RetryAfter)
	}
	return q.next.Purge(ctx, path)
}
