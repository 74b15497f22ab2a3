// Package cache provides the TTL-bounded read-through cache used by catalog
// listings. Invalidation on mutation is the primary consistency mechanism;
// the TTL is only a fallback for invalidations that never arrive.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache keys are aggregate names, one snapshot per listing.
const (
	KeyPublicProducts   = "public_products"
	KeyPublicCategories = "public_categories"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is the snapshot store behind the public catalog listings.
type Cache interface {
	// Get unmarshals the cached snapshot for key into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest any) error
	// Set stores a snapshot for key that expires after ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Invalidate removes the entry for key immediately.
	Invalidate(ctx context.Context, key string) error
}
