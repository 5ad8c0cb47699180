package cycles

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/finops/finops/internal/domain/billing"
	"github.com/finops/finops/internal/domain/timeline"
	"github.com/finops/finops/internal/platform/text"
)

// cycleProcedures is the closed set of procedure types that count as a
// treatment cycle.
var cycleProcedures = map[string]struct{}{
	"Ciclo a Fresco FIV":          {},
	"Ciclo de Congelados":         {},
	"Ciclo a Fresco Vitrificação": {},
}

// withoutContinuation holds the outcome labels meaning the cycle ended
// without a transfer. Labels are compared lower-cased with whitespace
// collapsed; anything outside the set counts as with-continuation.
var withoutContinuation = map[string]struct{}{
	"no transfer":        {},
	"sem transferencia":  {},
	"sem transferência":  {},
	"sem transfer":       {},
	"":                   {},
}

// IsCycleProcedure reports whether a procedure type counts as a cycle.
func IsCycleProcedure(procedure string) bool {
	_, ok := cycleProcedures[procedure]
	return ok
}

// HasContinuation classifies a cycle outcome label. Unknown labels count
// as with-continuation.
func HasContinuation(outcome string) bool {
	normalized := text.CollapseSpaces(outcome)
	_, without := withoutContinuation[normalized]
	return !without
}

// Accountant produces the per-patient cycle/payment reconciliation.
type Accountant struct {
	log zerolog.Logger
}

func NewAccountant(log zerolog.Logger) *Accountant {
	return &Accountant{log: log}
}

// Summarize reconciles cycles against payments per patient. Only
// patients whose first timeline event falls on or after the cutoff are
// summarized. Cycle counting only trusts real dates: events with a
// synthesized date are excluded.
func (a *Accountant) Summarize(events []timeline.Event, treatments []timeline.Treatment,
	payments map[int64]billing.PaymentSummary, cutoff time.Time) []Summary {

	donors := make(map[int64]bool)
	for _, tr := range treatments {
		if tr.DonorPatientID > 0 {
			donors[tr.DonorPatientID] = true
		}
	}

	byPatient := make(map[int64]*Summary)
	var order []int64
	for _, ev := range events {
		s, ok := byPatient[ev.PatientID]
		if !ok {
			s = &Summary{PatientID: ev.PatientID}
			byPatient[ev.PatientID] = s
			order = append(order, ev.PatientID)
		}
		if s.FirstEvent.IsZero() || ev.Date.Before(s.FirstEvent) {
			s.FirstEvent = ev.Date
		}
		if ev.Date.After(s.LastEvent) {
			s.LastEvent = ev.Date
		}

		if ev.Type != timeline.TypeTreatment || ev.Estimated || !IsCycleProcedure(ev.Procedure) {
			continue
		}
		s.Cycles++
		if HasContinuation(ev.Outcome) {
			s.WithContinuation++
		} else {
			s.WithoutContinuation++
		}
		if s.FirstCycle.IsZero() || ev.Date.Before(s.FirstCycle) {
			s.FirstCycle = ev.Date
		}
		if ev.Date.After(s.LastCycle) {
			s.LastCycle = ev.Date
		}
		if ev.Unit != "" {
			s.Unit = ev.Unit
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	summaries := make([]Summary, 0, len(order))
	for _, patientID := range order {
		s := byPatient[patientID]
		if s.FirstEvent.Before(cutoff) {
			continue
		}
		if p, ok := payments[patientID]; ok {
			s.Payments = p.Payments
			s.PaymentsTotal = p.Total
			s.FirstPayment = p.FirstIssue
			s.LastPayment = p.LastIssue
			// Billing-side unit fills in when no cycle event named one.
			if s.Unit == "" {
				s.Unit = p.Unit
			}
		}
		s.IsDonor = donors[patientID]

		// The count comparisons are deliberately unguarded, so flag
		// pairs can fire together (2 cycles and 0 payments raises both
		// cycles_no_payments and more_cycles_than_payments).
		s.CyclesNoPayments = s.Cycles > 0 && s.Payments == 0
		s.MoreCyclesThanPayments = s.Cycles > s.Payments
		s.PaymentsNoCycles = s.Cycles == 0 && s.Payments > 0
		s.MorePaymentsThanCycles = s.Payments > s.Cycles

		summaries = append(summaries, *s)
	}
	a.log.Debug().Int("patients", len(summaries)).Msg("cycle reconciliation complete")
	return summaries
}

// BuildPatientInfo rolls up the responsible doctor and clinic unit per
// patient from the most recently dated treatment. Missing values get the
// NotInformed label.
func BuildPatientInfo(treatments []timeline.Treatment) []PatientInfo {
	type latest struct {
		date   time.Time
		id     int64
		doctor string
		unit   string
	}
	byPatient := make(map[int64]latest)
	var order []int64
	for _, tr := range treatments {
		cur, ok := byPatient[tr.PatientID]
		if !ok {
			order = append(order, tr.PatientID)
		}
		if !ok || tr.ProcedureDate.After(cur.date) ||
			(tr.ProcedureDate.Equal(cur.date) && tr.ID > cur.id) {
			byPatient[tr.PatientID] = latest{date: tr.ProcedureDate, id: tr.ID, doctor: tr.Doctor, unit: tr.Unit}
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	infos := make([]PatientInfo, 0, len(order))
	for _, patientID := range order {
		cur := byPatient[patientID]
		info := PatientInfo{PatientID: patientID, Doctor: cur.doctor, Unit: cur.unit}
		if info.Doctor == "" {
			info.Doctor = NotInformed
		}
		if info.Unit == "" {
			info.Unit = NotInformed
		}
		infos = append(infos, info)
	}
	return infos
}
