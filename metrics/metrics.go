// metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdp"

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	Decisions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Decisions by effect and reason code.",
	}, []string{"effect", "reason"})

	EvaluatorLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluator_duration_seconds",
		Help:      "Latency of stateful evaluator calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"evaluator", "outcome"})

	CredentialCache = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_cache_total",
		Help:      "Credential cache lookups by result.",
	}, []string{"result"})

	TokenRefreshes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "OAuth token refreshes by outcome.",
	}, []string{"outcome"})

	Replays = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_replays_total",
		Help:      "Store-and-forward replays by service and outcome.",
	}, []string{"service", "outcome"})

	PendingApprovals = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "approvals_pending",
		Help:      "Approvals awaiting a human decision.",
	})

	SnapshotRebuilds = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_rebuilds_total",
		Help:      "Snapshot rebuilds by result: published, unchanged or failed.",
	}, []string{"result"})

	SnapshotAge = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_last_sync_timestamp_seconds",
		Help:      "Unix time of the last successful snapshot build or sync.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveEvaluator records one evaluator call.
func ObserveEvaluator(name, outcome string, started time.Time) {
	EvaluatorLatency.WithLabelValues(name, outcome).Observe(time.Since(started).Seconds())
}

// MarkSnapshotSync records the time of a successful build or sync.
func MarkSnapshotSync(t time.Time) {
	SnapshotAge.Set(float64(t.Unix()))
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
