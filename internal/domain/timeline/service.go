package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Builder assembles patient timelines. InductionOffsetDays is the fixed
// span from induction start to the estimated procedure date.
type Builder struct {
	log                 zerolog.Logger
	inductionOffsetDays int
}

func NewBuilder(log zerolog.Logger, inductionOffsetDays int) *Builder {
	return &Builder{log: log, inductionOffsetDays: inductionOffsetDays}
}

// Build merges the six sources into one sorted event stream. The output
// is fully determined by the inputs: rebuilding from the same snapshot
// yields an identical stream.
func (b *Builder) Build(treatments []Treatment, appointments []Appointment, labs []LabEvent) ([]Event, BuildStats) {
	var stats BuildStats
	events := make([]Event, 0, len(treatments)+len(appointments)+len(labs))

	events = append(events, b.appointmentEvents(appointments, &stats)...)

	for _, lab := range labs {
		events = append(events, Event{
			PatientID: lab.PatientID,
			SourceID:  lab.ID,
			Type:      lab.Type,
			Date:      lab.Date,
			Value:     lab.Detail,
			Unit:      lab.Unit,
		})
	}

	events = append(events, b.treatmentEvents(treatments, &stats)...)

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.After(events[j].Date)
		}
		if events[i].Type.Priority() != events[j].Type.Priority() {
			return events[i].Type.Priority() > events[j].Type.Priority()
		}
		return events[i].SourceID > events[j].SourceID
	})

	stats.Events = len(events)
	return events, stats
}

// appointmentEvents keeps confirmed appointments with a named procedure
// and collapses exact duplicates, keeping the lowest source id.
func (b *Builder) appointmentEvents(appointments []Appointment, stats *BuildStats) []Event {
	type dedupKey struct {
		patient   int64
		date      time.Time
		procedure string
	}
	kept := make(map[dedupKey]Appointment)
	var order []dedupKey
	for _, a := range appointments {
		if !a.Confirmed || a.ProcedureName == "" {
			continue
		}
		key := dedupKey{patient: a.PatientID, date: a.Date, procedure: a.ProcedureName}
		if prev, ok := kept[key]; ok {
			stats.Deduplicated++
			if a.ID >= prev.ID {
				continue
			}
		} else {
			order = append(order, key)
		}
		kept[key] = a
	}

	events := make([]Event, 0, len(order))
	for _, key := range order {
		a := kept[key]
		events = append(events, Event{
			PatientID: a.PatientID,
			SourceID:  a.ID,
			Type:      TypeAppointment,
			Date:      a.Date,
			Value:     a.ProcedureName,
		})
		stats.Appointments++
	}
	return events
}

// treatmentEvents dates every treatment it can. Undated treatments fall
// back to induction start plus the fixed offset, then to interpolation
// between the dated neighbouring attempts of the same patient; what
// neither can place is dropped and counted.
func (b *Builder) treatmentEvents(treatments []Treatment, stats *BuildStats) []Event {
	byPatient := make(map[int64][]Treatment)
	var patients []int64
	for _, tr := range treatments {
		if _, ok := byPatient[tr.PatientID]; !ok {
			patients = append(patients, tr.PatientID)
		}
		byPatient[tr.PatientID] = append(byPatient[tr.PatientID], tr)
	}
	sort.Slice(patients, func(i, j int) bool { return patients[i] < patients[j] })

	var events []Event
	for _, patient := range patients {
		group := byPatient[patient]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Attempt != group[j].Attempt {
				return group[i].Attempt < group[j].Attempt
			}
			return group[i].ID < group[j].ID
		})

		stats.AttemptGaps += countAttemptGaps(group)

		dated := make(map[int64]time.Time)
		for _, tr := range group {
			if !tr.ProcedureDate.IsZero() {
				if _, ok := dated[tr.Attempt]; !ok {
					dated[tr.Attempt] = tr.ProcedureDate
				}
			}
		}

		for _, tr := range group {
			date, estimated, ok := b.treatmentDate(tr, dated)
			if !ok {
				stats.Unplaceable++
				b.log.Warn().
					Int64("treatment_id", tr.ID).
					Int64("patient_id", tr.PatientID).
					Int64("attempt", tr.Attempt).
					Msg("treatment has no date and no neighbouring evidence")
				continue
			}
			if estimated {
				stats.Synthesized++
			}
			events = append(events, Event{
				PatientID: tr.PatientID,
				SourceID:  tr.ID,
				Type:      TypeTreatment,
				Date:      date,
				Estimated: estimated,
				Value:     fmt.Sprintf("%s | %d", tr.ProcedureType, tr.Attempt),
				Procedure: tr.ProcedureType,
				Attempt:   tr.Attempt,
				Unit:      tr.Unit,
				Outcome:   tr.Outcome,
			})
		}
	}
	return events
}

func (b *Builder) treatmentDate(tr Treatment, dated map[int64]time.Time) (time.Time, bool, bool) {
	if !tr.ProcedureDate.IsZero() {
		return tr.ProcedureDate, false, true
	}
	if !tr.InductionStart.IsZero() {
		return tr.InductionStart.AddDate(0, 0, b.inductionOffsetDays), true, true
	}
	// Attempt 0 means the attempt number itself is missing; there is
	// no ordinal position to interpolate from.
	if tr.Attempt <= 0 {
		return time.Time{}, false, false
	}
	return interpolateAttempt(tr.Attempt, dated)
}

// interpolateAttempt places an undated attempt between the nearest dated
// attempts of the same patient. With neighbours on both sides the
// midpoint is used; with one side only, that side's date.
func interpolateAttempt(attempt int64, dated map[int64]time.Time) (time.Time, bool, bool) {
	var (
		lower, upper         int64
		lowerDate, upperDate time.Time
		haveLower, haveUpper bool
	)
	for a, d := range dated {
		switch {
		case a < attempt && (!haveLower || a > lower):
			lower, lowerDate, haveLower = a, d, true
		case a > attempt && (!haveUpper || a < upper):
			upper, upperDate, haveUpper = a, d, true
		}
	}
	switch {
	case haveLower && haveUpper:
		mid := lowerDate.Add(upperDate.Sub(lowerDate) / 2)
		return mid.Truncate(24 * time.Hour), true, true
	case haveLower:
		return lowerDate, true, true
	case haveUpper:
		return upperDate, true, true
	default:
		return time.Time{}, false, false
	}
}

// countAttemptGaps counts the attempt numbers missing between the lowest
// and highest attempt recorded for one patient. The group must already
// be sorted by attempt.
func countAttemptGaps(group []Treatment) int {
	gaps := 0
	for i := 1; i < len(group); i++ {
		if d := group[i].Attempt - group[i-1].Attempt; d > 1 {
			gaps += int(d - 1)
		}
	}
	return gaps
}
