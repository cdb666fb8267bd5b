package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "junctionflow_collector_runs_total",
		Help: "Total number of collector runs started.",
	})
	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "junctionflow_collector_run_failures_total",
		Help: "Total number of collector runs aborted, by failing stage.",
	}, []string{"stage"})
	junctionsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "junctionflow_collector_junctions_captured_total",
		Help: "Total number of junctions turned into records.",
	})
	junctionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "junctionflow_collector_junctions_skipped_total",
		Help: "Total number of catalog junctions skipped, by reason.",
	}, []string{"reason"})
	rowsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "junctionflow_collector_rows_stored_total",
		Help: "Total number of rows appended to junction_data.",
	})
	publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "junctionflow_collector_publish_failures_total",
		Help: "Total number of live publish attempts that failed.",
	}, []string{"publisher"})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "junctionflow_collector_run_duration_seconds",
		Help:    "Wall time of a collector run.",
		Buckets: prometheus.DefBuckets,
	})
	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "junctionflow_collector_fetch_duration_seconds",
		Help:    "Wall time of the feed request.",
		Buckets: prometheus.DefBuckets,
	})
)

// pushTimeout bounds a push so a stalled gateway cannot hold the process open.
var pushTimeout = 10 * time.Second

// PushMetrics sends the collector metrics to a Prometheus Pushgateway. The
// collector exits after one run, so it cannot be scraped.
func PushMetrics(ctx context.Context, url, job string) error {
	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	return push.New(url, job).
		Collector(runsTotal).
		Collector(runFailures).
		Collector(junctionsCaptured).
		Collector(junctionsSkipped).
		Collector(rowsStored).
		Collector(publishFailures).
		Collector(runDuration).
		Collector(fetchDuration).
		PushContext(ctx)
}
