// Package timeline builds the chronological clinical event stream of
// each patient from the silver snapshot tables. Six source tables feed
// the timeline; treatments missing a procedure date get a synthesized
// one where the surrounding evidence allows it.
package timeline

import "time"

// EventType names one timeline source table. The numeric priority breaks
// same-day ties: higher priority sorts first within a day.
type EventType string

const (
	TypeAppointment  EventType = "appointment"
	TypeOocyteFreeze EventType = "oocyte_freeze"
	TypeOocyteThaw   EventType = "oocyte_thaw"
	TypeEmbryoFreeze EventType = "embryo_freeze"
	TypeEmbryoThaw   EventType = "embryo_thaw"
	TypeTreatment    EventType = "treatment"
)

var typePriority = map[EventType]int{
	TypeAppointment:  1,
	TypeOocyteFreeze: 2,
	TypeOocyteThaw:   3,
	TypeEmbryoFreeze: 4,
	TypeEmbryoThaw:   5,
	TypeTreatment:    6,
}

// Priority returns the same-day ordering rank of the event type.
func (t EventType) Priority() int { return typePriority[t] }

// Event is one row of the gold patient timeline. Procedure is only set
// for treatment events and carries the raw procedure type.
type Event struct {
	PatientID int64
	SourceID  int64
	Type      EventType
	Date      time.Time
	Estimated bool
	Value     string
	Procedure string
	Attempt   int64
	Unit      string
	Outcome   string
}

// Treatment is one silver treatment row, already resolved to its
// canonical patient. A zero ProcedureDate or InductionStart means the
// source column was null.
type Treatment struct {
	ID             int64
	PatientID      int64
	DonorPatientID int64
	ProcedureDate  time.Time
	InductionStart time.Time
	Attempt        int64
	ProcedureType  string
	Doctor         string
	Unit           string
	Outcome        string
	TransferDay    string
}

// Appointment is one silver appointment row.
type Appointment struct {
	ID            int64
	PatientID     int64
	Date          time.Time
	ProcedureName string
	Confirmed     bool
}

// LabEvent is one freeze or thaw row; Type distinguishes the four lab
// source tables.
type LabEvent struct {
	ID        int64
	PatientID int64
	Type      EventType
	Date      time.Time
	Detail    string
	Unit      string
}

// BuildStats are the per-run audit counters of the builder.
type BuildStats struct {
	Events       int
	Synthesized  int
	Unplaceable  int
	AttemptGaps  int
	Appointments int
	Deduplicated int
}
