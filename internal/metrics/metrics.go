// Package metrics exposes Prometheus collectors for scans, provider calls and the
// analytics query lifecycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memescan"

// Registry holds all scanner metrics on a private prometheus registry
type Registry struct {
	reg *prometheus.Registry

	ScansTotal        *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	SnapshotItems     prometheus.Gauge
	Candidates        prometheus.Gauge
	Records           prometheus.Gauge
	LastScanTimestamp prometheus.Gauge

	MetadataFailures *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec

	QueryOutcomes *prometheus.CounterVec
	QueryDuration prometheus.Histogram
	QueryPolls    *prometheus.CounterVec

	BreakerState *prometheus.GaugeVec
}

// NewRegistry creates and registers all collectors
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of scans by result",
			},
			[]string{"result"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Wall time of a full scan",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		SnapshotItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_items",
				Help:      "Number of listings in the last snapshot",
			},
		),
		Candidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "candidates",
				Help:      "Number of listings passing the market criteria in the last scan",
			},
		),
		Records: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records",
				Help:      "Number of records produced by the last scan",
			},
		),
		LastScanTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_scan_timestamp_seconds",
				Help:      "Unix time the last successful scan finished",
			},
		),
		MetadataFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_failures_total",
				Help:      "Candidates skipped because metadata could not be resolved, by reason",
			},
			[]string{"reason"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_cache_lookups_total",
				Help:      "Metadata cache lookups by result",
			},
			[]string{"result"},
		),
		QueryOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_queries_total",
				Help:      "Analytics query executions by outcome",
			},
			[]string{"outcome"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_query_duration_seconds",
				Help:      "Time from submission to terminal state of an analytics query",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 250, 500},
			},
		),
		QueryPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_query_polls_total",
				Help:      "Status polls by observed execution state",
			},
			[]string{"state"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_open",
				Help:      "1 when the named circuit breaker is open, 0.5 half-open, 0 closed",
			},
			[]string{"name"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ScansTotal,
		r.ScanDuration,
		r.SnapshotItems,
		r.Candidates,
		r.Records,
		r.LastScanTimestamp,
		r.MetadataFailures,
		r.CacheLookups,
		r.QueryOutcomes,
		r.QueryDuration,
		r.QueryPolls,
		r.BreakerState,
	)

	return r
}

// Handler returns the /metrics handler for this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveScan records the outcome of one scan
func (r *Registry) ObserveScan(snapshot, candidates, records int, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.ScanDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.ScansTotal.WithLabelValues("error").Inc()
		return
	}
	r.ScansTotal.WithLabelValues("success").Inc()
	r.SnapshotItems.Set(float64(snapshot))
	r.Candidates.Set(float64(candidates))
	r.Records.Set(float64(records))
	r.LastScanTimestamp.SetToCurrentTime()
}

// ObserveMetadataFailure counts a skipped candidate
func (r *Registry) ObserveMetadataFailure(reason string) {
	if r == nil {
		return
	}
	r.MetadataFailures.WithLabelValues(reason).Inc()
}

// ObserveCacheLookup counts a metadata cache hit, miss or error
func (r *Registry) ObserveCacheLookup(result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveQuery records a finished analytics query
func (r *Registry) ObserveQuery(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.QueryOutcomes.WithLabelValues(outcome).Inc()
	r.QueryDuration.Observe(elapsed.Seconds())
}

// ObservePoll counts one status poll
func (r *Registry) ObservePoll(state string) {
	if r == nil {
		return
	}
	r.QueryPolls.WithLabelValues(state).Inc()
}

// SetBreakerState publishes a circuit breaker state
func (r *Registry) SetBreakerState(name, state string) {
	if r == nil {
		return
	}
	var v float64
	switch state {
	case "open":
		v = 1
	case "half_open":
		v = 0.5
	}
	r.BreakerState.WithLabelValues(name).Set(v)
}
