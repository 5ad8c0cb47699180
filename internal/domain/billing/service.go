package billing

import "time"

// PaymentSummary rolls up the treatment payments of one patient. Unit is
// the clinic unit derived from the ERP group/branch codes of the
// patient's lines, empty when no line carried a mappable pair.
type PaymentSummary struct {
	PatientID  int64
	Payments   int
	Total      float64
	FirstIssue time.Time
	LastIssue  time.Time
	Unit       string
}

// SummarizePayments rolls up treatment payments per canonical patient.
// patientByLine carries the resolution outcome per line id; lines that
// resolved to the unresolved sentinel, or carry a non-treatment
// category, are skipped.
func SummarizePayments(lines []LedgerLine, patientByLine map[int64]int64) map[int64]PaymentSummary {
	summaries := make(map[int64]PaymentSummary)
	for _, line := range lines {
		if !line.IsTreatmentPayment() {
			continue
		}
		patientID, ok := patientByLine[line.ID]
		if !ok || patientID < 0 {
			continue
		}
		s := summaries[patientID]
		s.PatientID = patientID
		s.Payments++
		s.Total += line.Amount
		if s.Unit == "" {
			s.Unit = UnitName(line.Group, line.Branch)
		}
		if !line.IssuedAt.IsZero() {
			if s.FirstIssue.IsZero() || line.IssuedAt.Before(s.FirstIssue) {
				s.FirstIssue = line.IssuedAt
			}
			if line.IssuedAt.After(s.LastIssue) {
				s.LastIssue = line.IssuedAt
			}
		}
		summaries[patientID] = s
	}
	return summaries
}
