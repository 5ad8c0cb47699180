// Package source implements the bronze-to-silver reduction: collapsing
// multiply-extracted source rows down to the latest known state per
// business key and discarding rows whose identifiers cannot be salvaged.
package source

import (
	"fmt"
	"strings"
	"time"
)

// SourceRecord is one row from one source table as captured at extraction
// time. The payload carries every source column untyped; only the business
// key columns and identifier columns are interpreted here.
type SourceRecord struct {
	Table       string
	Payload     map[string]any
	ExtractedAt time.Time
}

// TableSpec describes how one source table is reduced.
type TableSpec struct {
	Name              string
	KeyColumns        []string
	IdentifierColumns []string
	// Master marks the authoritative patient table. Its rows are never
	// dropped: identifier columns that fail normalization become nulls.
	Master bool
}

// keyTuple renders the business key for grouping and ordering. Values are
// rendered with a field separator that cannot occur inside rendered
// numbers, so distinct tuples never collide.
func (r SourceRecord) keyTuple(keyColumns []string) string {
	parts := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		parts[i] = fmt.Sprintf("%v", r.Payload[col])
	}
	return strings.Join(parts, "\x1f")
}

// ReduceStats reports what a reduction pass did, per table.
type ReduceStats struct {
	Table        string
	Input        int
	Kept         int
	Deduplicated int
	Discarded    int
	NulledIDs    int
}

// Tables lists the source tables the pipeline reduces, in processing
// order. The patient table is the master identity table.
var Tables = []TableSpec{
	{Name: "patients", KeyColumns: []string{"id"}, IdentifierColumns: []string{"id"}, Master: true},
	{Name: "patient_codes", KeyColumns: []string{"patient_id", "system", "code"}, IdentifierColumns: []string{"patient_id", "code"}},
	{Name: "patient_identifiers", KeyColumns: []string{"patient_id", "kind"}, IdentifierColumns: []string{"patient_id", "value"}},
	{Name: "treatments", KeyColumns: []string{"id"}, IdentifierColumns: []string{"patient_id", "donor_patient_id"}},
	{Name: "appointments", KeyColumns: []string{"id"}, IdentifierColumns: []string{"patient_id"}},
	{Name: "embryo_freezes", KeyColumns: []string{"id"}, IdentifierColumns: []string{"patient_id"}},
	{Name: "oocyte_freezes", KeyColumns: []string{"id"}, IdentifierColumns: []string{"patient_id"}},
	{Name: "embryo_thaws", KeyColumns: []string{"id"}, IdentifierColumns: []string{"patient_id"}},
	{Name: "oocyte_thaws", KeyColumns: []string{"id"}, IdentifierColumns: []string{"patient_id"}},
	// billing_lines carries no identifier column here: its customer code
	// is resolved by the identity resolver, and unmatched lines keep the
	// unresolved sentinel instead of being dropped.
	{Name: "billing_lines", KeyColumns: []string{"id"}, IdentifierColumns: nil},
	{Name: "doctors", KeyColumns: []string{"id"}, IdentifierColumns: nil},
	{Name: "units", KeyColumns: []string{"id"}, IdentifierColumns: nil},
}
