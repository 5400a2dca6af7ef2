// Package cache provides the artifact caching layer: a small Cache
// interface with file, redis, and null implementations, plus domain key
// generation for graph snapshots and packed bundles.
package cache

import (
	"context"
	"time"
)

// Default TTLs per artifact class. Graph snapshots go stale with the
// source tree, so they expire faster than packed bundles, which are
// keyed by content hash.
const (
	TTLGraph  = 1 * time.Hour
	TTLBundle = 24 * time.Hour
)

// Cache is the storage interface for cached build artifacts.
type Cache interface {
	// Get retrieves a value. The second return reports a hit; a miss is
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an optional TTL. A zero TTL means the
	// entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any underlying resources.
	Close() error
}

// GraphKeyOpts captures the resolution options that affect a crawled
// module graph. Two builds with the same root and entries but different
// options must not share a graph cache entry.
type GraphKeyOpts struct {
	Entries    []string
	Mode       string // resolution mode: node or direct
	Extensions []string
	Aliases    map[string]string
}

// BundleKeyOpts captures the packing options that affect an emitted
// bundle artifact.
type BundleKeyOpts struct {
	Root      string // bundle root identity; empty for the shared bundle
	Shared    bool
	Expose    bool
	SourceMap string
	MapRoot   string
}

// Keyer generates cache keys for the build pipeline stages.
type Keyer interface {
	// GraphKey identifies a crawled graph snapshot for a project root
	// and its resolution options.
	GraphKey(root string, opts GraphKeyOpts) string

	// BundleKey identifies a packed artifact derived from a graph
	// content hash and the packing options.
	BundleKey(graphHash string, opts BundleKeyOpts) string
}

// DefaultKeyer generates unscoped cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey generates a key for graph snapshot caching.
func (k *DefaultKeyer) GraphKey(root string, opts GraphKeyOpts) string {
	return hashKey("graph", root, opts)
}

// BundleKey generates a key for packed artifact caching.
func (k *DefaultKeyer) BundleKey(graphHash string, opts BundleKeyOpts) string {
	return hashKey("bundle", graphHash, opts)
}
