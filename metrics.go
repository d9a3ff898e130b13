package kura

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type worldStats struct {
	jobs   atomic.Uint64
	chunks atomic.Uint64
}

// Stats is a point-in-time summary of a world.
type Stats struct {
	Entities int
	Tables   int
	Queries  int
	Streams  int
	// Deferred is the number of structural operations waiting for the
	// open read-scopes to close.
	Deferred int
	Jobs     uint64
	Chunks   uint64
}

// Stats returns the current statistics of w.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := Stats{
		Tables:   len(w.tables),
		Queries:  len(w.queries),
		Streams:  len(w.streams),
		Deferred: w.deferred.len(),
		Jobs:     w.stats.jobs.Load(),
		Chunks:   w.stats.chunks.Load(),
	}
	for _, t := range w.tables {
		s.Entities += t.Count()
	}
	return s
}

// Collector exports the Stats of a set of worlds to Prometheus, labeled
// by world name.
type Collector struct {
	worlds   []*World
	entities *prometheus.Desc
	tables   *prometheus.Desc
	queries  *prometheus.Desc
	deferred *prometheus.Desc
	jobs     *prometheus.Desc
	chunks   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector over worlds.
func NewCollector(worlds ...*World) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("kura", "world", name), help, []string{"world"}, nil)
	}
	return &Collector{
		worlds:   worlds,
		entities: desc("entities", "Number of entities stored in tables."),
		tables:   desc("tables", "Number of tables."),
		queries:  desc("queries", "Number of compiled queries."),
		deferred: desc("deferred_operations", "Structural operations waiting for read-scopes to close."),
		jobs:     desc("jobs_total", "Parallel jobs run."),
		chunks:   desc("job_chunks_total", "Parallel job chunks run."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entities
	ch <- c.tables
	ch <- c.queries
	ch <- c.deferred
	ch <- c.jobs
	ch <- c.chunks
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, w := range c.worlds {
		s := w.Stats()
		ch <- prometheus.MustNewConstMetric(c.entities, prometheus.GaugeValue, float64(s.Entities), w.name)
		ch <- prometheus.MustNewConstMetric(c.tables, prometheus.GaugeValue, float64(s.Tables), w.name)
		ch <- prometheus.MustNewConstMetric(c.queries, prometheus.GaugeValue, float64(s.Queries), w.name)
		ch <- prometheus.MustNewConstMetric(c.deferred, prometheus.GaugeValue, float64(s.Deferred), w.name)
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.Jobs), w.name)
		ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.CounterValue, float64(s.Chunks), w.name)
	}
}
