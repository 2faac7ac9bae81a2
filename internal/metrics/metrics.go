// Package metrics exposes the read-only metric surface named in spec §6:
// counters, gauges, and histograms registered against a private
// prometheus.Registry that the embedding application can scrape on its own
// terms. CodeGraph ships no HTTP exporter — wiring a /metrics endpoint is
// an external collaborator's job (spec §1).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry bundles every metric CodeGraph produces. One Registry is created
// per engine instance and threaded to the components that update it; no
// package-level global is used, per spec §9's prohibition on process-wide
// singletons for shared mutable state.
type Registry struct {
	reg *prometheus.Registry

	ParseFilesTotal   prometheus.Counter
	ParseFilesFailed  prometheus.Counter
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	StoreWrites       prometheus.Counter
	StoreReads        prometheus.Counter
	VectorSearches    prometheus.Counter
	SubMsSearches     prometheus.Counter

	NodesCount  prometheus.Gauge
	EdgesCount  prometheus.Gauge
	VectorCount prometheus.Gauge

	ParseDurationMs  prometheus.Histogram
	SearchLatencyUs  prometheus.Histogram
	EmbedLatencyMs   prometheus.Histogram
}

// NewRegistry builds a Registry with every metric registered under the
// "codegraph" namespace.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: "codegraph", Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "codegraph", Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "codegraph", Name: name, Help: help, Buckets: buckets})
		reg.MustRegister(h)
		return h
	}

	return &Registry{
		reg: reg,

		ParseFilesTotal:  counter("parse_files_total", "files successfully parsed"),
		ParseFilesFailed: counter("parse_files_failed", "files that failed parsing"),
		CacheHits:        counter("cache_hits", "semantic cache hits"),
		CacheMisses:      counter("cache_misses", "semantic cache misses"),
		StoreWrites:      counter("store_writes", "graph store write operations"),
		StoreReads:       counter("store_reads", "graph store read operations"),
		VectorSearches:   counter("vector_searches", "vector index search calls"),
		SubMsSearches:    counter("sub_ms_searches", "vector searches completed under 1ms"),

		NodesCount:  gauge("nodes_count", "current number of nodes in the store"),
		EdgesCount:  gauge("edges_count", "current number of edges in the store"),
		VectorCount: gauge("vector_count", "current number of indexed vectors"),

		ParseDurationMs: histogram("parse_duration_ms", "per-file parse duration", prometheus.DefBuckets),
		SearchLatencyUs: histogram("search_latency_us", "vector search latency in microseconds",
			[]float64{100, 250, 500, 750, 1000, 2000, 5000, 10000}),
		EmbedLatencyMs: histogram("embed_latency_ms", "embedding provider call latency", prometheus.DefBuckets),
	}
}

// Registerer exposes the underlying registry for callers that want to add
// their own collectors or wrap it in an HTTP handler externally.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer exposes the underlying registry as a prometheus.Gatherer for
// read-only scraping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// SubMsRate computes §4.7's sub_ms_rate metric: the fraction of recorded
// vector searches that completed under 1ms. It reads the counters directly
// rather than querying the histogram, since the counters are updated
// unconditionally alongside each search.
func (r *Registry) SubMsRate() float64 {
	total := readCounter(r.VectorSearches)
	sub := readCounter(r.SubMsSearches)
	if total == 0 {
		return 0
	}
	return sub / total
}

func readCounter(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}
