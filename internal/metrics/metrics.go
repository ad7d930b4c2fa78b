// Package metrics provides Prometheus metrics for the RAG pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	TokensTotal       *prometheus.CounterVec
	CostDollarsTotal  prometheus.Counter
	ChunksIngested    prometheus.Counter
	RetrievedChunks   prometheus.Histogram
	IndexEntries      prometheus.Gauge
	HTTPRequestsTotal *prometheus.CounterVec
}

// New creates collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragpipe_operations_total",
				Help: "Total pipeline operations by name and outcome",
			},
			[]string{"operation", "status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragpipe_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragpipe_tokens_total",
				Help: "Tokens reported by the completion service",
			},
			[]string{"kind"},
		),
		CostDollarsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ragpipe_cost_dollars_total",
			Help: "Estimated completion cost in US dollars",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "ragpipe_chunks_ingested_total",
			Help: "Chunks embedded and inserted into the index",
		}),
		RetrievedChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragpipe_retrieved_chunks",
			Help:    "Number of chunks returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		IndexEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ragpipe_index_entries",
			Help: "Entries currently held by the vector index",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragpipe_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage records the duration of a stage since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordOperation counts an operation outcome.
func (m *Metrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordUsage adds token usage and cost of one completion.
func (m *Metrics) RecordUsage(promptTokens, completionTokens int, cost float64) {
	if m == nil {
		return
	}
	m.TokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	m.TokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
	if cost > 0 {
		m.CostDollarsTotal.Add(cost)
	}
}

// RecordIngest counts inserted chunks and updates the index size.
func (m *Metrics) RecordIngest(chunks, indexSize int) {
	if m == nil {
		return
	}
	m.ChunksIngested.Add(float64(chunks))
	m.IndexEntries.Set(float64(indexSize))
}

// RecordRetrieval observes how many chunks a retrieval returned.
func (m *Metrics) RecordRetrieval(n int) {
	if m == nil {
		return
	}
	m.RetrievedChunks.Observe(float64(n))
}

// RecordHTTP counts a served HTTP request.
func (m *Metrics) RecordHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
