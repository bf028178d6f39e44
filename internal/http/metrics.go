package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	estimateBuckets  = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	recordBuckets    = prometheus.ExponentialBuckets(1, 4, 8)
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatlens",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}))

		r.requestLatency = registerCollector(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "heatlens",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}))

		r.rateLimitHits = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatlens",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"}))

		r.estimateLatency = registerCollector(prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heatlens",
			Subsystem: "engine",
			Name:      "estimate_duration_seconds",
			Help:      "Time spent estimating a heatmap from page structure",
			Buckets:   estimateBuckets,
		}))

		r.aggregateRecords = registerCollector(prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heatlens",
			Subsystem: "engine",
			Name:      "aggregate_records",
			Help:      "Pageviews reduced per telemetry snapshot",
			Buckets:   recordBuckets,
		}))
		r.metricsInitialized = true
	})
}

// registerCollector registers c on the default registry, reusing an identical collector
// registered by an earlier router.
func registerCollector[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (r *Router) recordEstimate(duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	r.estimateLatency.Observe(duration.Seconds())
}

func (r *Router) recordAggregate(records int) {
	if !r.metricsInitialized {
		return
	}
	r.aggregateRecords.Observe(float64(records))
}
