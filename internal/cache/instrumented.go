package cache

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// observedCache counts lookups of one cache group.
type observedCache struct {
	Cache
	group  string
	hits   prometheus.Counter
	misses prometheus.Counter
}

func observe(c Cache, group string) *observedCache {
	trackEntries(group, c.Len)
	return &observedCache{
		Cache:  c,
		group:  group,
		hits:   HitsTotal.WithLabelValues(group),
		misses: MissesTotal.WithLabelValues(group),
	}
}

func (c *observedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, found := c.Cache.Get(ctx, key)
	if found {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return value, found
}

func (c *observedCache) Close() error {
	untrackEntries(c.group)
	return c.Cache.Close()
}
