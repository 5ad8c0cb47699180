// Package pipeline orchestrates the four batch stages over the
// bronze/silver/gold store: reduce sources, resolve identities, build
// timelines, summarize. A stage only starts if every stage before it
// succeeded; on failure the previous run's outputs stay in place.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finops/finops/internal/domain/billing"
	"github.com/finops/finops/internal/domain/cycles"
	"github.com/finops/finops/internal/domain/identity"
	"github.com/finops/finops/internal/domain/source"
	"github.com/finops/finops/internal/domain/timeline"
	"github.com/finops/finops/internal/platform/telemetry"
)

// Runner wires the domain services to their repositories and runs the
// stages in order. It is the single writer of the silver and gold
// schemas.
type Runner struct {
	log     zerolog.Logger
	metrics *telemetry.RunMetrics

	cutoff              time.Time
	inductionOffsetDays int

	snapshots   source.SnapshotRepository
	refs        identity.ReferenceRepository
	annotations identity.AnnotationRepository
	ledger      billing.LedgerRepository
	events      timeline.SourceRepository
	timelines   timeline.TimelineRepository
	summaries   cycles.SummaryRepository
}

// Deps carries the repository implementations the runner writes through.
type Deps struct {
	Snapshots   source.SnapshotRepository
	Refs        identity.ReferenceRepository
	Annotations identity.AnnotationRepository
	Ledger      billing.LedgerRepository
	Events      timeline.SourceRepository
	Timelines   timeline.TimelineRepository
	Summaries   cycles.SummaryRepository
}

func NewRunner(log zerolog.Logger, metrics *telemetry.RunMetrics, cutoff time.Time, inductionOffsetDays int, deps Deps) *Runner {
	return &Runner{
		log:                 log,
		metrics:             metrics,
		cutoff:              cutoff,
		inductionOffsetDays: inductionOffsetDays,
		snapshots:           deps.Snapshots,
		refs:                deps.Refs,
		annotations:         deps.Annotations,
		ledger:              deps.Ledger,
		events:              deps.Events,
		timelines:           deps.Timelines,
		summaries:           deps.Summaries,
	}
}

// Run executes one full pipeline pass. The returned stats are complete
// only when err is nil; on error they cover the stages that finished.
func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	stats := newRunStats(uuid.NewString())
	log := r.log.With().Str("run_id", stats.RunID).Logger()
	log.Info().Msg("pipeline run starting")

	var annotations []identity.Annotation
	var lines []billing.LedgerLine
	var events []timeline.Event
	var treatments []timeline.Treatment

	stages := []struct {
		name string
		fn   func(context.Context, zerolog.Logger) error
	}{
		{"reduce_sources", func(ctx context.Context, log zerolog.Logger) error {
			return r.reduceSources(ctx, log, stats)
		}},
		{"resolve_identities", func(ctx context.Context, log zerolog.Logger) error {
			var err error
			lines, annotations, err = r.resolveIdentities(ctx, log, stats)
			return err
		}},
		{"build_timelines", func(ctx context.Context, log zerolog.Logger) error {
			var err error
			events, treatments, err = r.buildTimelines(ctx, log, stats)
			return err
		}},
		{"summarize", func(ctx context.Context, log zerolog.Logger) error {
			return r.summarize(ctx, log, stats, lines, annotations, events, treatments)
		}},
	}

	for _, stage := range stages {
		stageLog := log.With().Str("stage", stage.name).Logger()
		start := time.Now()
		if err := stage.fn(ctx, stageLog); err != nil {
			stageLog.Error().Err(err).Msg("stage failed, aborting run")
			return stats, fmt.Errorf("stage %s: %w", stage.name, err)
		}
		elapsed := time.Since(start)
		r.metrics.StageDuration.WithLabelValues(stage.name).Set(elapsed.Seconds())
		stageLog.Info().Dur("elapsed", elapsed).Msg("stage complete")
	}

	log.Info().
		Int("records_in", stats.RecordsIn).
		Int("deduplicated", stats.Deduplicated).
		Int("discarded", stats.Discarded).
		Int("unresolved", stats.Unresolved).
		Int("timeline_events", stats.TimelineEvents).
		Int("summaries", stats.Summaries).
		Msg("pipeline run complete")
	return stats, nil
}

// reduceSources collapses the bronze extraction history of every source
// table into its silver latest-state snapshot.
func (r *Runner) reduceSources(ctx context.Context, log zerolog.Logger, stats *RunStats) error {
	reducer := source.NewReducer(log)
	for _, spec := range source.Tables {
		records, err := r.snapshots.ReadBronze(ctx, spec)
		if err != nil {
			return err
		}
		reduced, tableStats := reducer.Reduce(records, spec)
		if err := r.snapshots.ReplaceSilver(ctx, spec, reduced); err != nil {
			return err
		}

		stats.RecordsIn += tableStats.Input
		stats.RecordsKept += tableStats.Kept
		stats.Deduplicated += tableStats.Deduplicated
		stats.Discarded += tableStats.Discarded
		stats.NulledIDs += tableStats.NulledIDs
		r.metrics.Deduplicated.Add(float64(tableStats.Deduplicated))
		r.metrics.DiscardedInvalid.Add(float64(tableStats.Discarded))

		log.Debug().
			Str("table", spec.Name).
			Int("input", tableStats.Input).
			Int("kept", tableStats.Kept).
			Int("deduplicated", tableStats.Deduplicated).
			Int("discarded", tableStats.Discarded).
			Msg("table reduced")
	}
	return nil
}

// resolveIdentities runs the match cascade over every billing line and
// records the outcome, including the unresolved sentinel, in the gold
// annotation table.
func (r *Runner) resolveIdentities(ctx context.Context, log zerolog.Logger, stats *RunStats) ([]billing.LedgerLine, []identity.Annotation, error) {
	refs, err := r.refs.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	resolver := identity.NewResolver(refs)

	lines, err := r.ledger.ListLines(ctx)
	if err != nil {
		return nil, nil, err
	}

	annotations := make([]identity.Annotation, 0, len(lines))
	for _, line := range lines {
		res := resolver.Resolve(line.CustomerCode, identity.ResolutionContext{
			PayerName:   line.PayerName,
			PatientName: line.PatientName,
			UnitID:      line.UnitID,
		})
		annotations = append(annotations, identity.Annotation{
			LineID:    line.ID,
			PatientID: res.PatientID,
			Strategy:  res.Strategy,
		})
		if res.Resolved() {
			stats.Resolved[res.Strategy]++
			r.metrics.ResolvedBy.WithLabelValues(string(res.Strategy)).Inc()
		} else {
			stats.Unresolved++
			r.metrics.Unresolved.Inc()
		}
	}

	if err := r.annotations.ReplaceBillingAnnotations(ctx, annotations); err != nil {
		return nil, nil, err
	}
	log.Debug().Int("lines", len(lines)).Int("unresolved", stats.Unresolved).Msg("ledger resolved")
	return lines, annotations, nil
}

// buildTimelines rebuilds the gold timeline in full from the silver
// snapshot. The built events and the raw treatments are handed on to the
// summarize stage.
func (r *Runner) buildTimelines(ctx context.Context, log zerolog.Logger, stats *RunStats) ([]timeline.Event, []timeline.Treatment, error) {
	treatments, err := r.events.ListTreatments(ctx)
	if err != nil {
		return nil, nil, err
	}
	appointments, err := r.events.ListAppointments(ctx)
	if err != nil {
		return nil, nil, err
	}
	labs, err := r.events.ListLabEvents(ctx)
	if err != nil {
		return nil, nil, err
	}

	builder := timeline.NewBuilder(log, r.inductionOffsetDays)
	events, buildStats := builder.Build(treatments, appointments, labs)
	if err := r.timelines.Replace(ctx, events); err != nil {
		return nil, nil, err
	}

	stats.TimelineEvents = buildStats.Events
	stats.Synthesized = buildStats.Synthesized
	stats.Unplaceable = buildStats.Unplaceable
	stats.AttemptGaps = buildStats.AttemptGaps
	r.metrics.EventsSynthesized.Add(float64(buildStats.Synthesized))
	r.metrics.EventsUnplaceable.Add(float64(buildStats.Unplaceable))
	r.metrics.AttemptGaps.Add(float64(buildStats.AttemptGaps))
	return events, treatments, nil
}

// summarize reconciles cycles against payments and writes the gold
// summary and patient info tables.
func (r *Runner) summarize(ctx context.Context, log zerolog.Logger, stats *RunStats,
	lines []billing.LedgerLine, annotations []identity.Annotation,
	events []timeline.Event, treatments []timeline.Treatment) error {

	patientByLine := make(map[int64]int64, len(annotations))
	for _, a := range annotations {
		patientByLine[a.LineID] = a.PatientID
	}
	payments := billing.SummarizePayments(lines, patientByLine)

	accountant := cycles.NewAccountant(log)
	summaries := accountant.Summarize(events, treatments, payments, r.cutoff)
	if err := r.summaries.ReplaceSummaries(ctx, summaries); err != nil {
		return err
	}
	if err := r.summaries.ReplacePatientInfo(ctx, cycles.BuildPatientInfo(treatments)); err != nil {
		return err
	}
	stats.Summaries = len(summaries)
	return nil
}
