package cache

import (
	"context"
	"time"

	"doctree/internal/domain/services"
)

// NoopCache always misses. Memory-mode servers and tests that don't
// exercise caching use it; the hierarchy engine and query service behave
// identically, just without the read-through shortcut.
type NoopCache struct{}

// NewNoopCache constructs a NoopCache.
func NewNoopCache() *NoopCache { return &NoopCache{} }

func (NoopCache) Get(ctx context.Context, key string, dest any) (bool, error) { return false, nil }

func (NoopCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

func (NoopCache) Invalidate(ctx context.Context, keys ...string) error { return nil }

var _ services.Cache = NoopCache{}
