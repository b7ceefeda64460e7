// Package metrics exposes Prometheus metrics for pipeline runs.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: status
	FetchFailures   *prometheus.CounterVec // labels: symbol
	RunDuration     prometheus.Histogram
	RowsWritten     prometheus.Gauge
	TickersIncluded prometheus.Gauge
	LastSuccess     prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundlens_runs_total",
			Help: "Pipeline runs by final status",
		}, []string{"status"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fundlens_fetch_failures_total",
			Help: "Per-ticker fetch failures",
		}, []string{"symbol"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fundlens_run_duration_seconds",
			Help:    "Wall time of a full pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		RowsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundlens_rows_written",
			Help: "Rows in the last written consolidated dataset",
		}),
		TickersIncluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundlens_tickers_included",
			Help: "Tickers present in the last latest snapshot",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fundlens_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.RunsTotal, m.FetchFailures, m.RunDuration, m.RowsWritten, m.TickersIncluded, m.LastSuccess)
	return m
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(status string, elapsed time.Duration, rows, tickers int, finished time.Time) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	if status == "SUCCESS" {
		m.RowsWritten.Set(float64(rows))
		m.TickersIncluded.Set(float64(tickers))
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

// Serve exposes /metrics on addr until the server fails.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("[INFO] metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
	return srv
}
