package cache

import (
	"context"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", openMemory)
}

// memoryCache is an expiring LRU; resolved identifiers are lost on restart.
type memoryCache struct {
	*expirable.LRU[string, []byte]
}

func openMemory(opts Options) (Cache, error) {
	var onEvict expirable.EvictCallback[string, []byte]
	if opts.OnEvict != nil {
		onEvict = expirable.EvictCallback[string, []byte](opts.OnEvict)
	}
	return memoryCache{expirable.NewLRU[string, []byte](opts.Size, onEvict, opts.TTL)}, nil
}

func (m memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.LRU.Get(key)
}

func (m memoryCache) Set(_ context.Context, key string, value []byte) {
	m.LRU.Add(key, value)
}

func (m memoryCache) Contains(_ context.Context, key string) bool {
	return m.LRU.Contains(key)
}

func (m memoryCache) Close() error { return nil }
