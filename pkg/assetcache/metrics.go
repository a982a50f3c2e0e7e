package assetcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connect_asset_cache_hits_total",
			Help: "Total number of foreign asset lookups answered from the cache",
		})

	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connect_asset_cache_misses_total",
			Help: "Total number of foreign asset lookups that missed the cache",
		})
)
