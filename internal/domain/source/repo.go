package source

import "context"

// SnapshotRepository reads the bronze extraction history and replaces the
// silver snapshot for one table.
type SnapshotRepository interface {
	ReadBronze(ctx context.Context, spec TableSpec) ([]SourceRecord, error)
	ReplaceSilver(ctx context.Context, spec TableSpec, records []SourceRecord) error
}
