// Package metrics exposes prometheus series for the query pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finsight_stage_latency_ms",
		Help:    "Latency of pipeline stages in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"stage"})

	queryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "finsight_query_latency_ms",
		Help:    "End-to-end query processing latency in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	cacheOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_cache_ops_total",
		Help: "Cache lookups by cache name and outcome (hit/miss/bypass)",
	}, []string{"cache", "outcome"})

	followUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "finsight_followup_queries_total",
		Help: "Queries classified as conversational follow-ups",
	})

	degraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_degraded_results_total",
		Help: "Degraded results by failing stage",
	}, []string{"stage"})

	retrievedDocs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "finsight_retrieved_documents",
		Help:    "Merged candidate count per query before reranking",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 30, 50, 100},
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(stageLatency, queryLatency, cacheOps, followUps, degraded, retrievedDocs)
	})
}

func ObserveStage(stage string, d time.Duration) {
	ensureRegistered()
	stageLatency.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

func ObserveQuery(d time.Duration) {
	ensureRegistered()
	queryLatency.Observe(float64(d.Milliseconds()))
}

func CountCacheOp(cache, outcome string) {
	ensureRegistered()
	cacheOps.WithLabelValues(cache, outcome).Inc()
}

func CountFollowUp() {
	ensureRegistered()
	followUps.Inc()
}

func CountDegraded(stage string) {
	ensureRegistered()
	degraded.WithLabelValues(stage).Inc()
}

func ObserveRetrieved(count int) {
	ensureRegistered()
	retrievedDocs.Observe(float64(count))
}
