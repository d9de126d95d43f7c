package service

import (
	"context"
	"time"

	"github.com/langowen/ratesconverter/internal/entities"
)

// Cache is a TTL key/value store. Implementations normalise key case.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client performs one logical upstream GET, retries included.
type Client interface {
	Fetch(ctx context.Context, url string) (*entities.UpstreamResponse, error)
}
