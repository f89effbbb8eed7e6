package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

func groupCounter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backdrops",
		Subsystem: "cache",
		Name:      name,
		Help:      help,
	}, []string{"cache"})
}

// Lookup metrics, labelled by cache group.
var (
	HitsTotal      = groupCounter("hits_total", "Identifier lookups answered from the cache.")
	MissesTotal    = groupCounter("misses_total", "Identifier lookups not found in the cache.")
	EvictionsTotal = groupCounter("evictions_total", "Entries dropped to make room for new ones.")
)

func init() {
	prometheus.MustRegister(HitsTotal, MissesTotal, EvictionsTotal)
}

var entriesDesc = func(group string) *prometheus.Desc {
	return prometheus.NewDesc("backdrops_cache_entries",
		"Entries currently held by the cache.", nil, prometheus.Labels{"cache": group})
}

// entriesCollector samples the cache size on scrape; redis and sqlite expire
// rows on their own so a gauge updated on Set would drift.
type entriesCollector struct {
	desc *prometheus.Desc
	size func() int
}

func (c *entriesCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *entriesCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.size()))
}

var (
	entriesMu         sync.Mutex
	entriesCollectors = map[string]*entriesCollector{}
	// entriesReg is replaced in tests
	entriesReg prometheus.Registerer = prometheus.DefaultRegisterer
)

// trackEntries exposes the size of group, replacing an earlier cache with the same group.
func trackEntries(group string, size func() int) {
	entriesMu.Lock()
	defer entriesMu.Unlock()
	if prev := entriesCollectors[group]; prev != nil {
		entriesReg.Unregister(prev)
	}
	c := &entriesCollector{desc: entriesDesc(group), size: size}
	entriesCollectors[group] = c
	_ = entriesReg.Register(c)
}

func untrackEntries(group string) {
	entriesMu.Lock()
	defer entriesMu.Unlock()
	if c := entriesCollectors[group]; c != nil {
		entriesReg.Unregister(c)
		delete(entriesCollectors, group)
	}
}
