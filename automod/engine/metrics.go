package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sweepVerdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wikimod_sweep_verdicts",
	Help: "Number of auto-delete verdicts produced, by kind",
}, []string{"kind"})

var sweepDeleteCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "wikimod_sweep_deletions",
	Help: "Number of pages actually deleted by auto-delete sweeps",
})

var sweepErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "wikimod_sweep_errors",
	Help: "Number of pages that failed processing during sweeps",
})

var sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "wikimod_sweep_duration_sec",
	Help: "Total duration of sweep operations",
}, []string{"op"})

var categoryEditCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wikimod_category_edits",
	Help: "Number of pages rewritten by category bulk edits",
}, []string{"op"})
