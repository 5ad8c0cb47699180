package timeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestBuilder() *Builder {
	return NewBuilder(zerolog.Nop(), 14)
}

func TestBuildInterpolatesMissingAttemptDate(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 10, Attempt: 1, ProcedureDate: day(2023, 1, 10), ProcedureType: "FIV"},
		{ID: 2, PatientID: 10, Attempt: 2, ProcedureDate: day(2023, 3, 1), ProcedureType: "FIV"},
		{ID: 3, PatientID: 10, Attempt: 3, ProcedureType: "FIV"},
		{ID: 4, PatientID: 10, Attempt: 4, ProcedureDate: day(2023, 7, 1), ProcedureType: "FIV"},
	}

	events, stats := newTestBuilder().Build(treatments, nil, nil)

	var third *Event
	for i := range events {
		if events[i].SourceID == 3 {
			third = &events[i]
		}
	}
	if third == nil {
		t.Fatal("attempt 3 missing from timeline")
	}
	if !third.Estimated {
		t.Error("interpolated date must be flagged estimated")
	}
	if !third.Date.After(day(2023, 3, 1)) || !third.Date.Before(day(2023, 7, 1)) {
		t.Errorf("interpolated date %v not between neighbouring attempts", third.Date)
	}
	if stats.Synthesized != 1 {
		t.Errorf("Synthesized = %d, want 1", stats.Synthesized)
	}
	if stats.Unplaceable != 0 {
		t.Errorf("Unplaceable = %d, want 0", stats.Unplaceable)
	}
}

func TestBuildInductionOffset(t *testing.T) {
	treatments := []Treatment{
		{ID: 7, PatientID: 20, Attempt: 1, InductionStart: day(2023, 5, 1), ProcedureType: "FET / FOT"},
	}

	events, stats := newTestBuilder().Build(treatments, nil, nil)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if want := day(2023, 5, 15); !events[0].Date.Equal(want) {
		t.Errorf("date = %v, want induction start + 14d = %v", events[0].Date, want)
	}
	if !events[0].Estimated {
		t.Error("induction-derived date must be flagged estimated")
	}
	if stats.Synthesized != 1 {
		t.Errorf("Synthesized = %d, want 1", stats.Synthesized)
	}
}

func TestBuildSingleNeighbourUsesItsDate(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 30, Attempt: 1, ProcedureDate: day(2022, 9, 9), ProcedureType: "FIV"},
		{ID: 2, PatientID: 30, Attempt: 2, ProcedureType: "FIV"},
	}

	events, _ := newTestBuilder().Build(treatments, nil, nil)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.SourceID == 2 {
			if !ev.Date.Equal(day(2022, 9, 9)) || !ev.Estimated {
				t.Errorf("single-neighbour event = %+v, want neighbour date, estimated", ev)
			}
		}
	}
}

func TestBuildUnplaceableDropped(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 40, Attempt: 1, ProcedureType: "FIV"},
	}

	events, stats := newTestBuilder().Build(treatments, nil, nil)

	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
	if stats.Unplaceable != 1 {
		t.Errorf("Unplaceable = %d, want 1", stats.Unplaceable)
	}
}

func TestBuildMissingAttemptNumberNotInterpolated(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 50, Attempt: 1, ProcedureDate: day(2023, 4, 4), ProcedureType: "FIV"},
		// Attempt 0: the attempt number itself is missing, so the dated
		// sibling gives no ordinal position to interpolate from.
		{ID: 2, PatientID: 50, Attempt: 0, ProcedureType: "FIV"},
	}

	events, stats := newTestBuilder().Build(treatments, nil, nil)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].SourceID != 1 {
		t.Errorf("surviving event SourceID = %d, want 1", events[0].SourceID)
	}
	if stats.Unplaceable != 1 {
		t.Errorf("Unplaceable = %d, want 1", stats.Unplaceable)
	}
	if stats.Synthesized != 0 {
		t.Errorf("Synthesized = %d, want 0", stats.Synthesized)
	}
}

func TestBuildTreatmentValueFormat(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 10, Attempt: 2, ProcedureDate: day(2023, 1, 1), ProcedureType: "FIV"},
	}

	events, _ := newTestBuilder().Build(treatments, nil, nil)

	if events[0].Value != "FIV | 2" {
		t.Errorf("Value = %q, want %q", events[0].Value, "FIV | 2")
	}
}

func TestBuildAppointmentFilterAndDedup(t *testing.T) {
	appointments := []Appointment{
		{ID: 5, PatientID: 10, Date: day(2023, 2, 2), ProcedureName: "Consulta", Confirmed: true},
		{ID: 3, PatientID: 10, Date: day(2023, 2, 2), ProcedureName: "Consulta", Confirmed: true},
		{ID: 6, PatientID: 10, Date: day(2023, 2, 3), ProcedureName: "Consulta", Confirmed: false},
		{ID: 7, PatientID: 10, Date: day(2023, 2, 4), ProcedureName: "", Confirmed: true},
	}

	events, stats := newTestBuilder().Build(nil, appointments, nil)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].SourceID != 3 {
		t.Errorf("dedup kept id %d, want lowest id 3", events[0].SourceID)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", stats.Deduplicated)
	}
}

func TestBuildSortOrder(t *testing.T) {
	date := day(2023, 6, 1)
	treatments := []Treatment{
		{ID: 1, PatientID: 10, Attempt: 1, ProcedureDate: date, ProcedureType: "FIV"},
	}
	appointments := []Appointment{
		{ID: 2, PatientID: 10, Date: date, ProcedureName: "Consulta", Confirmed: true},
	}
	labs := []LabEvent{
		{ID: 8, PatientID: 10, Type: TypeEmbryoFreeze, Date: date},
		{ID: 9, PatientID: 10, Type: TypeEmbryoFreeze, Date: date},
		{ID: 4, PatientID: 10, Type: TypeOocyteThaw, Date: day(2023, 6, 5)},
	}

	events, _ := newTestBuilder().Build(treatments, appointments, labs)

	wantOrder := []int64{4, 1, 9, 8, 2}
	for i, ev := range events {
		if ev.SourceID != wantOrder[i] {
			t.Fatalf("position %d holds source %d, want %d (full order %+v)", i, ev.SourceID, wantOrder[i], events)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 10, Attempt: 1, ProcedureDate: day(2023, 1, 10), ProcedureType: "FIV"},
		{ID: 3, PatientID: 10, Attempt: 3, ProcedureType: "FIV"},
		{ID: 4, PatientID: 10, Attempt: 4, ProcedureDate: day(2023, 7, 1), ProcedureType: "FIV"},
		{ID: 2, PatientID: 11, Attempt: 1, InductionStart: day(2023, 2, 1), ProcedureType: "FET / FOT"},
	}
	appointments := []Appointment{
		{ID: 9, PatientID: 10, Date: day(2023, 4, 4), ProcedureName: "Consulta", Confirmed: true},
	}

	first, firstStats := newTestBuilder().Build(treatments, appointments, nil)
	second, secondStats := newTestBuilder().Build(treatments, appointments, nil)

	if !reflect.DeepEqual(first, second) {
		t.Error("rebuild from identical inputs produced a different stream")
	}
	if firstStats != secondStats {
		t.Errorf("stats differ between rebuilds: %+v vs %+v", firstStats, secondStats)
	}
}

func TestBuildAttemptGapCount(t *testing.T) {
	treatments := []Treatment{
		{ID: 1, PatientID: 10, Attempt: 1, ProcedureDate: day(2023, 1, 1), ProcedureType: "FIV"},
		{ID: 2, PatientID: 10, Attempt: 4, ProcedureDate: day(2023, 5, 1), ProcedureType: "FIV"},
	}

	_, stats := newTestBuilder().Build(treatments, nil, nil)

	if stats.AttemptGaps != 2 {
		t.Errorf("AttemptGaps = %d, want 2 (attempts 2 and 3 missing)", stats.AttemptGaps)
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	events, stats := newTestBuilder().Build(nil, nil, nil)
	if len(events) != 0 || stats.Events != 0 {
		t.Fatalf("empty inputs produced %d events", len(events))
	}
}
