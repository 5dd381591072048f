// Package metrics exposes Prometheus collectors for the controller pool,
// feed pipeline, profile fetcher, publish pipeline, and persistent cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	controllerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "divinefeed",
		Name:      "pool_controllers",
		Help:      "Current number of live media controllers.",
	})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "divinefeed",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state, one-hot over the state label (closed, failed, permanently_failed): the current state is 1, the others 0.",
	}, []string{"state"})

	evictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "divinefeed",
		Name:      "pool_evictions_total",
		Help:      "Total controller evictions by reason.",
	}, []string{"reason"})

	preloadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "divinefeed",
		Name:      "pool_preload_seconds",
		Help:      "Controller initialization latency.",
		Buckets:   prometheus.DefBuckets,
	})

	admissionResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "divinefeed",
		Name:      "feed_admissions_total",
		Help:      "Feed pipeline admission decisions.",
	}, []string{"result"})

	profileCacheResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "divinefeed",
		Name:      "profile_cache_total",
		Help:      "Profile fetcher cache outcomes.",
	}, []string{"result"})

	publishStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "divinefeed",
		Name:      "publish_stage_total",
		Help:      "Publish pipeline stage outcomes.",
	}, []string{"stage", "result"})

	cacheStoreOpenResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "divinefeed",
		Name:      "cache_store_open_total",
		Help:      "Persistent cache store open attempts by outcome.",
	}, []string{"outcome"})
)

func SetControllerCount(n int) { controllerCount.Set(float64(n)) }

func SetCircuitBreakerState(state string) {
	for _, s := range []string{"closed", "failed", "permanently_failed"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		circuitBreakerState.WithLabelValues(s).Set(v)
	}
}

func IncEviction(reason string)                { evictions.WithLabelValues(reason).Inc() }
func ObservePreloadSeconds(seconds float64)      { preloadLatency.Observe(seconds) }
func IncAdmission(result string)                { admissionResult.WithLabelValues(result).Inc() }
func IncProfileCache(result string)             { profileCacheResult.WithLabelValues(result).Inc() }
func IncPublishStage(stage, result string)       { publishStage.WithLabelValues(stage, result).Inc() }
func IncCacheStoreOpen(outcome string)           { cacheStoreOpenResult.WithLabelValues(outcome).Inc() }

// GetControllerCount returns the gauge's current value, for tests that
// assert on pool eviction/admission behavior without scraping /metrics.
func GetControllerCount() float64 {
	var m dto.Metric
	if err := controllerCount.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// GetEvictionCount returns the eviction counter's current value for reason.
func GetEvictionCount(reason string) float64 {
	var m dto.Metric
	if err := evictions.WithLabelValues(reason).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
