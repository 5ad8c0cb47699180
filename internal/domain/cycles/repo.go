package cycles

import "context"

// SummaryRepository replaces the gold reconciliation outputs.
type SummaryRepository interface {
	ReplaceSummaries(ctx context.Context, summaries []Summary) error
	ReplacePatientInfo(ctx context.Context, infos []PatientInfo) error
}
