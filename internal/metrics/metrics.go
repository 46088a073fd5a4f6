package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DirectoryCacheHits counts cache hits per directory category.
var DirectoryCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deskbridge_directory_cache_hits_total",
	Help: "Directory cache hits by category.",
}, []string{"category"})

// DirectoryCacheMisses counts cache misses (and therefore upstream fetches)
// per directory category.
var DirectoryCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deskbridge_directory_cache_misses_total",
	Help: "Directory cache misses by category.",
}, []string{"category"})

// SubmissionsTotal counts batch submission item outcomes.
var SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deskbridge_submissions_total",
	Help: "Batch submission items by outcome.",
}, []string{"outcome"})
