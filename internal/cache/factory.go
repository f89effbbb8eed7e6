package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

const defaultSize = 1000

// Options configures a cache backend. Each backend reads the fields it needs.
type Options struct {
	Size    int
	TTL     time.Duration
	OnEvict EvictCallback
	Logger  Logger

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	SQLitePath string

	// Group names the cache in metrics; empty disables instrumentation.
	Group string
}

// Backend opens a cache from Options.
type Backend func(opts Options) (Cache, error)

var registry = struct {
	sync.RWMutex
	backends map[string]Backend
}{backends: map[string]Backend{}}

// Register adds a backend under name. Registering nil or a taken name panics.
func Register(name string, b Backend) {
	if b == nil {
		panic("cache: nil backend " + name)
	}
	registry.Lock()
	defer registry.Unlock()
	if _, taken := registry.backends[name]; taken {
		panic(fmt.Sprintf("cache: backend %q registered twice", name))
	}
	registry.backends[name] = b
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.backends))
	for name := range registry.backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New opens the named backend. With a Group set the cache reports
// hits, misses, evictions and its entry count.
func New(name string, opts Options) (Cache, error) {
	registry.RLock()
	open, ok := registry.backends[name]
	registry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cache: no backend %q, have %v", name, Backends())
	}
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	if opts.Group == "" {
		return open(opts)
	}

	opts.OnEvict = countEvictions(opts.Group, opts.OnEvict)
	c, err := open(opts)
	if err != nil {
		return nil, err
	}
	return observe(c, opts.Group), nil
}

func countEvictions(group string, next EvictCallback) EvictCallback {
	evictions := EvictionsTotal.WithLabelValues(group)
	return func(key string, value []byte) {
		evictions.Inc()
		if next != nil {
			next(key, value)
		}
	}
}
