// Package cache stores identifier lookups so repeated runs do not query the
// search endpoint for titles that were already resolved.
package cache

import "context"

// EvictCallback is called when an entry is evicted from the cache.
// Redis does not report evictions; it relies on server-side expiry.
type EvictCallback func(key string, value []byte)

// Logger receives errors from backends that cannot return them to the caller.
type Logger interface {
	Error(msg string, err error)
}

// Cache is a small key-value store with expiring entries.
// Backend failures are reported to the configured Logger and surface as misses,
// so a broken cache only costs an extra lookup.
type Cache interface {
	// Get retrieves a value by key. Returns the value and true if found.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value, overwriting any previous value for key.
	Set(ctx context.Context, key string, value []byte)

	// Contains reports whether key is present and not expired.
	Contains(ctx context.Context, key string) bool

	// Len returns the number of live entries.
	Len() int

	// Close releases connections or file handles held by the backend.
	Close() error
}
