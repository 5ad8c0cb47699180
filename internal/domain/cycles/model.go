// Package cycles reconciles the treatment cycles a patient went through
// against the treatment payments recorded for them, and carries the
// per-patient rollups the finance reports read.
package cycles

import "time"

// Summary is one row of the gold cycle summary table.
type Summary struct {
	PatientID           int64
	Cycles              int
	WithContinuation    int
	WithoutContinuation int
	Payments            int
	PaymentsTotal       float64
	FirstCycle          time.Time
	LastCycle           time.Time
	FirstPayment        time.Time
	LastPayment         time.Time
	FirstEvent          time.Time
	LastEvent           time.Time
	Unit                string
	IsDonor             bool

	CyclesNoPayments       bool
	MoreCyclesThanPayments bool
	PaymentsNoCycles       bool
	MorePaymentsThanCycles bool
}

// PatientInfo is one row of the gold patient info table: the most recent
// responsible doctor and the clinic unit, defaulting to the source
// system's "not informed" label.
type PatientInfo struct {
	PatientID int64
	Doctor    string
	Unit      string
}

// NotInformed is the default label for missing doctor or unit values.
const NotInformed = "Não informado"
