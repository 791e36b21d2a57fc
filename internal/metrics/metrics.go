// Package metrics exposes sync activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/chatnotes/internal/syncer"
)

const namespace = "chatnotes"

// Collector records sync batches. It implements syncer.Observer and owns its
// registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	notes     *prometheus.CounterVec
	archived  *prometheus.CounterVec
	failed    *prometheus.CounterVec
	batches   *prometheus.CounterVec
	lastBatch *prometheus.GaugeVec
}

// New creates a Collector with Go runtime and process collectors attached.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		notes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_synced_total",
			Help:      "Conversations written to notes, by action.",
		}, []string{"folder", "action"}),
		archived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_archived_total",
			Help:      "Notes moved to the Archive folder.",
		}, []string{"folder"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_failed_total",
			Help:      "Conversations that could not be synced.",
		}, []string{"folder"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_batches_total",
			Help:      "Completed sync batches, by status.",
		}, []string{"folder", "status"}),
		lastBatch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_batch_timestamp_seconds",
			Help:      "Unix time of the last completed batch.",
		}, []string{"folder"}),
	}
	c.registry.MustRegister(
		c.notes, c.archived, c.failed, c.batches, c.lastBatch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// NoteSynced implements syncer.Observer.
func (c *Collector) NoteSynced(folder string, o syncer.Outcome) {
	if o.Failed() || o.DryRun {
		return
	}
	c.notes.WithLabelValues(folder, o.Action.String()).Inc()
}

// NoteArchived implements syncer.Observer.
func (c *Collector) NoteArchived(folder, _, _ string) {
	c.archived.WithLabelValues(folder).Inc()
}

// BatchCompleted implements syncer.Observer.
func (c *Collector) BatchCompleted(folder string, s syncer.Summary) {
	if s.UpToDate > 0 {
		c.notes.WithLabelValues(folder, syncer.ActionUpToDate.String()).Add(float64(s.UpToDate))
	}
	if s.Failed > 0 {
		c.failed.WithLabelValues(folder).Add(float64(s.Failed))
	}
	c.batches.WithLabelValues(folder, s.Status.String()).Inc()
	c.lastBatch.WithLabelValues(folder).Set(float64(time.Now().Unix()))
}

var _ syncer.Observer = (*Collector)(nil)
