package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus series of one engine instance. It satisfies
// ports.GraphMetrics, the query bus Metrics and the HTTP middleware metrics.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	GraphBuilds        *prometheus.CounterVec
	GraphBuildDuration *prometheus.HistogramVec
	GraphNodes         *prometheus.GaugeVec
	GraphEdges         *prometheus.GaugeVec
	GraphFallbacks     *prometheus.CounterVec

	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

var buildBuckets = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewCollector registers every series under namespace on a private
// registry, so several collectors can coexist in one process.
func NewCollector(namespace string) *Collector {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),

		HTTPRequests: counter("http_requests_total", "Requests served, by route pattern", "method", "route", "status"),
		HTTPDuration: histogram("http_request_duration_seconds", "Request latency", prometheus.DefBuckets, "method", "route"),

		GraphBuilds:        counter("graph_builds_total", "Graph builds, by vault and outcome", "vault", "status"),
		GraphBuildDuration: histogram("graph_build_duration_seconds", "Build latency including the metadata fetch", buildBuckets, "vault"),
		GraphNodes:         gauge("graph_nodes", "Node count of the last successful build", "vault"),
		GraphEdges:         gauge("graph_edges", "Edge count of the last successful build", "vault"),
		GraphFallbacks:     counter("graph_fallbacks_total", "Requests answered with a fallback graph", "reason"),

		Queries:       counter("queries_total", "Queries dispatched on the bus", "query", "status"),
		QueryDuration: histogram("query_duration_seconds", "Query handler latency", prometheus.DefBuckets, "query"),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "graph_cache_hits_total", Help: "Graph cache lookups that found a live entry",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "graph_cache_misses_total", Help: "Graph cache lookups that missed or found an expired entry",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.GraphBuilds, c.GraphBuildDuration, c.GraphNodes, c.GraphEdges, c.GraphFallbacks,
		c.Queries, c.QueryDuration,
		c.CacheHits, c.CacheMisses,
	)
	return c
}

// Registry is what /metrics serves
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordBuild leaves the size gauges untouched when the build failed
func (c *Collector) RecordBuild(vaultID string, duration time.Duration, nodes, edges int, err error) {
	c.GraphBuilds.WithLabelValues(vaultID, outcome(err)).Inc()
	c.GraphBuildDuration.WithLabelValues(vaultID).Observe(duration.Seconds())
	if err != nil {
		return
	}
	c.GraphNodes.WithLabelValues(vaultID).Set(float64(nodes))
	c.GraphEdges.WithLabelValues(vaultID).Set(float64(edges))
}

func (c *Collector) RecordCacheHit()  { c.CacheHits.Inc() }
func (c *Collector) RecordCacheMiss() { c.CacheMisses.Inc() }

func (c *Collector) RecordFallback(reason string) {
	c.GraphFallbacks.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordQuery(queryType string, duration time.Duration, err error) {
	c.Queries.WithLabelValues(queryType, outcome(err)).Inc()
	c.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
