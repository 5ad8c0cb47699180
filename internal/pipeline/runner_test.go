package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/finops/finops/internal/domain/billing"
	"github.com/finops/finops/internal/domain/cycles"
	"github.com/finops/finops/internal/domain/identity"
	"github.com/finops/finops/internal/domain/source"
	"github.com/finops/finops/internal/domain/timeline"
	"github.com/finops/finops/internal/platform/telemetry"
)

type fakeSnapshots struct {
	bronze map[string][]source.SourceRecord
	silver map[string][]source.SourceRecord
}

func (f *fakeSnapshots) ReadBronze(_ context.Context, spec source.TableSpec) ([]source.SourceRecord, error) {
	return f.bronze[spec.Name], nil
}

func (f *fakeSnapshots) ReplaceSilver(_ context.Context, spec source.TableSpec, records []source.SourceRecord) error {
	if f.silver == nil {
		f.silver = make(map[string][]source.SourceRecord)
	}
	f.silver[spec.Name] = records
	return nil
}

type fakeRefs struct{ refs []identity.PatientRef }

func (f *fakeRefs) ListActive(context.Context) ([]identity.PatientRef, error) {
	return f.refs, nil
}

type fakeAnnotations struct {
	written []identity.Annotation
	err     error
}

func (f *fakeAnnotations) ReplaceBillingAnnotations(_ context.Context, annotations []identity.Annotation) error {
	if f.err != nil {
		return f.err
	}
	f.written = annotations
	return nil
}

type fakeLedger struct{ lines []billing.LedgerLine }

func (f *fakeLedger) ListLines(context.Context) ([]billing.LedgerLine, error) {
	return f.lines, nil
}

type fakeEvents struct {
	treatments   []timeline.Treatment
	appointments []timeline.Appointment
	labs         []timeline.LabEvent
}

func (f *fakeEvents) ListTreatments(context.Context) ([]timeline.Treatment, error) {
	return f.treatments, nil
}

func (f *fakeEvents) ListAppointments(context.Context) ([]timeline.Appointment, error) {
	return f.appointments, nil
}

func (f *fakeEvents) ListLabEvents(context.Context) ([]timeline.LabEvent, error) {
	return f.labs, nil
}

type fakeTimelines struct {
	replaced bool
	events   []timeline.Event
}

func (f *fakeTimelines) Replace(_ context.Context, events []timeline.Event) error {
	f.replaced = true
	f.events = events
	return nil
}

type fakeSummaries struct {
	summaries []cycles.Summary
	infos     []cycles.PatientInfo
}

func (f *fakeSummaries) ReplaceSummaries(_ context.Context, summaries []cycles.Summary) error {
	f.summaries = summaries
	return nil
}

func (f *fakeSummaries) ReplacePatientInfo(_ context.Context, infos []cycles.PatientInfo) error {
	f.infos = infos
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testDeps() (Deps, *fakeSnapshots, *fakeAnnotations, *fakeTimelines, *fakeSummaries) {
	snapshots := &fakeSnapshots{
		bronze: map[string][]source.SourceRecord{
			"patients": {
				{Table: "patients", Payload: map[string]any{"id": "100"}, ExtractedAt: day(2024, 1, 1)},
				{Table: "patients", Payload: map[string]any{"id": "100"}, ExtractedAt: day(2024, 2, 1)},
			},
		},
	}
	annotations := &fakeAnnotations{}
	timelines := &fakeTimelines{}
	summaries := &fakeSummaries{}
	deps := Deps{
		Snapshots: snapshots,
		Refs: &fakeRefs{refs: []identity.PatientRef{
			{ID: 100, Codes: []int64{555}},
		}},
		Annotations: annotations,
		Ledger: &fakeLedger{lines: []billing.LedgerLine{
			{ID: 1, CustomerCode: "555", Category: "FIV", Amount: 100, IssuedAt: day(2023, 3, 1)},
			{ID: 2, CustomerCode: "999", Category: "FIV", Amount: 50, IssuedAt: day(2023, 3, 2)},
		}},
		Events: &fakeEvents{treatments: []timeline.Treatment{
			{ID: 1, PatientID: 100, Attempt: 1, ProcedureDate: day(2023, 2, 1),
				ProcedureType: "Ciclo a Fresco FIV", Outcome: "Transferido", Doctor: "Dra. Helena"},
		}},
		Timelines: timelines,
		Summaries: summaries,
	}
	return deps, snapshots, annotations, timelines, summaries
}

func newTestRunner(deps Deps) *Runner {
	return NewRunner(zerolog.Nop(), telemetry.NewRunMetrics(), day(2023, 1, 1), 14, deps)
}

func TestRunFullPass(t *testing.T) {
	deps, snapshots, annotations, timelines, summaries := testDeps()
	runner := newTestRunner(deps)

	stats, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.RunID == "" {
		t.Error("run id missing")
	}

	if got := len(snapshots.silver["patients"]); got != 1 {
		t.Errorf("silver patients = %d rows, want 1 after dedup", got)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", stats.Deduplicated)
	}

	if len(annotations.written) != 2 {
		t.Fatalf("annotations = %d, want one per ledger line", len(annotations.written))
	}
	if a := annotations.written[0]; a.PatientID != 100 || a.Strategy != identity.StrategyDirectCode {
		t.Errorf("line 1 annotation = %+v, want 100 via direct_code", a)
	}
	if a := annotations.written[1]; a.PatientID != identity.Unresolved {
		t.Errorf("line 2 annotation = %+v, want unresolved sentinel", a)
	}
	if stats.Resolved[identity.StrategyDirectCode] != 1 || stats.Unresolved != 1 {
		t.Errorf("resolution stats = %+v", stats)
	}

	if !timelines.replaced || len(timelines.events) != 1 {
		t.Fatalf("timeline = %+v, want 1 event", timelines.events)
	}

	if len(summaries.summaries) != 1 {
		t.Fatalf("summaries = %+v, want 1", summaries.summaries)
	}
	s := summaries.summaries[0]
	if s.PatientID != 100 || s.Cycles != 1 || s.Payments != 1 || s.PaymentsTotal != 100 {
		t.Errorf("summary = %+v, want 1 cycle reconciled against 1 payment of 100", s)
	}
	if s.CyclesNoPayments || s.MoreCyclesThanPayments || s.PaymentsNoCycles || s.MorePaymentsThanCycles {
		t.Errorf("summary flags set on balanced patient: %+v", s)
	}

	if len(summaries.infos) != 1 || summaries.infos[0].Doctor != "Dra. Helena" {
		t.Errorf("patient info = %+v", summaries.infos)
	}
}

func TestRunStageFailureStopsPipeline(t *testing.T) {
	deps, _, annotations, timelines, summaries := testDeps()
	annotations.err = errors.New("store unreachable")
	runner := newTestRunner(deps)

	_, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if !strings.Contains(err.Error(), "resolve_identities") {
		t.Errorf("error %q does not name the failed stage", err)
	}
	if timelines.replaced {
		t.Error("timeline stage ran after a failed stage")
	}
	if summaries.summaries != nil {
		t.Error("summarize stage ran after a failed stage")
	}
}
