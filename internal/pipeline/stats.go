package pipeline

import (
	"github.com/finops/finops/internal/domain/identity"
)

// RunStats aggregates the audit counters of one pipeline run. The same
// numbers feed the structured run log and the Prometheus textfile.
type RunStats struct {
	RunID string

	RecordsIn    int
	RecordsKept  int
	Deduplicated int
	Discarded    int
	NulledIDs    int

	Resolved   map[identity.Strategy]int
	Unresolved int

	TimelineEvents int
	Synthesized    int
	Unplaceable    int
	AttemptGaps    int

	Summaries int
}

func newRunStats(runID string) *RunStats {
	return &RunStats{
		RunID:    runID,
		Resolved: make(map[identity.Strategy]int),
	}
}
