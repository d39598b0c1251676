package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "featurepull"

var (
	// Registry holds every featurepull collector; it is what Expose serves
	// and Push sends.
	Registry = prometheus.NewRegistry()

	ArtifactFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifact_fetches_total",
		Help:      "Artifact fetch attempts by artifact and outcome (ok|error).",
	}, []string{"artifact", "outcome"})

	FetchSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "artifact_fetch_seconds",
		Help:      "Wall time spent fetching one artifact.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"artifact"})

	SetupComplete = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "setup_complete",
		Help:      "1 when the feature store working directory was fully provisioned.",
	})

	TrainingRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "training_set_rows",
		Help:      "Rows in the last emitted training set.",
	})
)

func init() {
	Registry.MustRegister(ArtifactFetches, FetchSeconds, SetupComplete, TrainingRows)
}

// ObserveFetch records one artifact fetch attempt.
func ObserveFetch(artifact string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ArtifactFetches.WithLabelValues(artifact, outcome).Inc()
	FetchSeconds.WithLabelValues(artifact).Observe(took.Seconds())
}

// Expose serves /metrics on port for the lifetime of the process.
func Expose(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}

// Push sends the registry to a Prometheus Pushgateway. Batch steps exit
// before a scrape would reach them, so this is the primary export path.
func Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(Registry).PushContext(ctx)
}
