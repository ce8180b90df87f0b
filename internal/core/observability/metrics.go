// Package observability holds the solver's Prometheus collectors and the
// helpers that record into them.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"method", "route", "status"},
	)

	solveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solve_total",
			Help: "Solve attempts by containment strategy and outcome.",
		},
		[]string{"containment", "outcome"},
	)

	solveStageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solve_stage_duration_seconds",
			Help:    "Time spent in each solve stage.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
		},
		[]string{"containment", "stage"},
	)

	candidatesExamined = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solve_candidates_examined",
			Help:    "Candidate rectangles examined before the contained search stopped.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of redis operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	resultCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_total",
			Help: "Solve result cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Kafka solve jobs by outcome.",
		},
		[]string{"outcome"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rect_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		solveTotal, solveStageSeconds, candidatesExamined,
		cacheOpTotal, redisOpSeconds, resultCache,
		jobsProcessed, kafkaConsumerErrors, buildInfo,
	}
}

func init() {
	Init(prometheus.DefaultRegisterer, true)
}

// Init registers the collectors with reg and toggles recording. Collectors
// already present in reg are left as they are.
func Init(reg prometheus.Registerer, on bool) {
	enabled.Store(on)
	if reg == nil || !on {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveSolve(containment, outcome string) {
	if !enabled.Load() {
		return
	}
	solveTotal.WithLabelValues(containment, outcome).Inc()
}

func ObserveStage(containment, stage string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	solveStageSeconds.WithLabelValues(containment, stage).Observe(d.Seconds())
}

func ObserveExamined(n int) {
	if !enabled.Load() {
		return
	}
	candidatesExamined.Observe(float64(n))
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	redisOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncResultCacheHit() {
	if enabled.Load() {
		resultCache.WithLabelValues("hit").Inc()
	}
}

func IncResultCacheMiss() {
	if enabled.Load() {
		resultCache.WithLabelValues("miss").Inc()
	}
}

func IncJob(outcome string) {
	if enabled.Load() {
		jobsProcessed.WithLabelValues(outcome).Inc()
	}
}

func IncKafkaConsumerError(kind string) {
	if enabled.Load() {
		kafkaConsumerErrors.WithLabelValues(kind).Inc()
	}
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
