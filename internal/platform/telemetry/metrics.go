// Package telemetry exposes per-run audit counters for the pipeline. The
// pipeline is a batch job with no HTTP surface, so instead of serving an
// endpoint the counters are written in Prometheus text exposition format
// to a file at the end of the run (textfile-collector style). The counts
// are the contract for detecting silent data loss between runs.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics aggregates the audit counters required for one pipeline run.
type RunMetrics struct {
	registry *prometheus.Registry

	Deduplicated     prometheus.Counter
	DiscardedInvalid prometheus.Counter
	ResolvedBy       *prometheus.CounterVec
	Unresolved       prometheus.Counter
	EventsSynthesized prometheus.Counter
	EventsUnplaceable prometheus.Counter
	AttemptGaps      prometheus.Counter
	StageDuration    *prometheus.GaugeVec
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		Deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finops_records_deduplicated_total",
			Help: "Source records removed as superseded extractions.",
		}),
		DiscardedInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finops_records_discarded_invalid_identifier_total",
			Help: "Source records dropped because every identifier column was unrepresentable.",
		}),
		ResolvedBy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finops_records_resolved_total",
			Help: "Records resolved to a canonical patient id, by match strategy.",
		}, []string{"strategy"}),
		Unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finops_records_unresolved_total",
			Help: "Records no match strategy could resolve.",
		}),
		EventsSynthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finops_timeline_events_synthesized_total",
			Help: "Timeline events whose date was inferred rather than observed.",
		}),
		EventsUnplaceable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finops_timeline_events_unplaceable_total",
			Help: "Undated facts excluded because no dated neighbor existed.",
		}),
		AttemptGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finops_attempt_sequence_gaps_total",
			Help: "Missing attempt numbers detected in per-patient treatment sequences.",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finops_stage_duration_seconds",
			Help: "Wall-clock duration of each pipeline stage in the last run.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.Deduplicated,
		m.DiscardedInvalid,
		m.ResolvedBy,
		m.Unresolved,
		m.EventsSynthesized,
		m.EventsUnplaceable,
		m.AttemptGaps,
		m.StageDuration,
	)
	return m
}

// Gather exposes the underlying registry for tests and custom exporters.
func (m *RunMetrics) Gather() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile dumps the counters to path in text exposition format. A
// path of "" disables the export.
func (m *RunMetrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
