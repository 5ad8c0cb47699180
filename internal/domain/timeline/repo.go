package timeline

import "context"

// SourceRepository reads the silver rows the builder consumes.
type SourceRepository interface {
	ListTreatments(ctx context.Context) ([]Treatment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ListLabEvents(ctx context.Context) ([]LabEvent, error)
}

// TimelineRepository replaces the gold timeline table with the events of
// the current run.
type TimelineRepository interface {
	Replace(ctx context.Context, events []Event) error
}
