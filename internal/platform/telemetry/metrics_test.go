package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunMetricsNames(t *testing.T) {
	m := NewRunMetrics()
	m.Deduplicated.Add(3)
	m.DiscardedInvalid.Inc()
	m.ResolvedBy.WithLabelValues("direct_code").Add(2)
	m.Unresolved.Inc()
	m.EventsSynthesized.Inc()
	m.EventsUnplaceable.Inc()
	m.AttemptGaps.Inc()
	m.StageDuration.WithLabelValues("reduce").Set(1.5)

	families, err := m.Gather().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	want := map[string]bool{
		"finops_records_deduplicated_total":                  false,
		"finops_records_discarded_invalid_identifier_total":  false,
		"finops_records_resolved_total":                      false,
		"finops_records_unresolved_total":                    false,
		"finops_timeline_events_synthesized_total":           false,
		"finops_timeline_events_unplaceable_total":           false,
		"finops_attempt_sequence_gaps_total":                 false,
		"finops_stage_duration_seconds":                      false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewRunMetrics()
	m.Unresolved.Add(7)

	path := filepath.Join(t.TempDir(), "finops.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "finops_records_unresolved_total 7") {
		t.Errorf("textfile missing unresolved counter:\n%s", data)
	}

	// Empty path disables the export.
	if err := m.WriteTextfile(""); err != nil {
		t.Fatalf("WriteTextfile with empty path: %v", err)
	}
}
