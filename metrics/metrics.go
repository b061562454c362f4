// Package metrics exports refresh and query timings. Noop is the default sink;
// Prometheus publishes the same events on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theoremus-urban-solutions/mtapi/refresh"
)

// Observer is everything the directory reports.
type Observer interface {
	refresh.Observer
	ObserveQuery(op, system string, d time.Duration, results int)
}

// Noop discards everything.
type Noop struct{}

func (Noop) ObserveRefresh(string, time.Duration, error)     {}
func (Noop) ObserveFailureStreak(string, int)                {}
func (Noop) ObserveSize(string, int)                         {}
func (Noop) ObserveQuery(string, string, time.Duration, int) {}

// Prometheus implements Observer with client_golang collectors.
type Prometheus struct {
	reg *prometheus.Registry

	refreshLatency *prometheus.HistogramVec
	refreshErrors  *prometheus.CounterVec
	failureStreak  *prometheus.GaugeVec
	stations       *prometheus.GaugeVec
	queryLatency   *prometheus.HistogramVec
	queryResults   *prometheus.HistogramVec
}

// NewPrometheus registers the collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		reg: prometheus.NewRegistry(),
		refreshLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mtapi_refresh_duration_seconds",
			Help:    "Duration of refresh cycles",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"system", "status"}),
		refreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtapi_refresh_failures_total",
			Help: "Refresh cycles that failed and kept the previous data",
		}, []string{"system"}),
		failureStreak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mtapi_refresh_consecutive_failures",
			Help: "Failed refresh cycles since the last success",
		}, []string{"system"}),
		stations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mtapi_index_size",
			Help: "Entries in the last published index",
		}, []string{"system"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mtapi_query_duration_seconds",
			Help:    "Latency of directory queries",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"op", "system"}),
		queryResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mtapi_query_results",
			Help:    "Results returned per directory query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"op"}),
	}
	p.reg.MustRegister(
		p.refreshLatency,
		p.refreshErrors,
		p.failureStreak,
		p.stations,
		p.queryLatency,
		p.queryResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) ObserveRefresh(name string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		p.refreshErrors.WithLabelValues(name).Inc()
	}
	p.refreshLatency.WithLabelValues(name, status).Observe(d.Seconds())
}

func (p *Prometheus) ObserveFailureStreak(name string, n int) {
	p.failureStreak.WithLabelValues(name).Set(float64(n))
}

func (p *Prometheus) ObserveSize(name string, n int) {
	p.stations.WithLabelValues(name).Set(float64(n))
}

func (p *Prometheus) ObserveQuery(op, system string, d time.Duration, results int) {
	p.queryLatency.WithLabelValues(op, system).Observe(d.Seconds())
	p.queryResults.WithLabelValues(op).Observe(float64(results))
}

// Registry exposes the registry for tests and for callers adding collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}
