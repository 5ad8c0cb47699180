package source

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/finops/finops/internal/platform/text"
)

// Reducer collapses bronze extraction history into the silver latest-state
// snapshot and normalizes identifier columns.
type Reducer struct {
	log zerolog.Logger
}

func NewReducer(log zerolog.Logger) *Reducer {
	return &Reducer{log: log}
}

// Reduce keeps, for each distinct business-key tuple, the record with the
// maximum extraction timestamp. Ties keep the earliest-seen record of that
// timestamp, so the output is deterministic for any input order handed to
// us by the store. Identifier columns are then normalized per the table's
// policy.
func (r *Reducer) Reduce(records []SourceRecord, spec TableSpec) ([]SourceRecord, ReduceStats) {
	stats := ReduceStats{Table: spec.Name, Input: len(records)}
	if len(records) == 0 {
		return nil, stats
	}

	sorted := make([]SourceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := sorted[i].keyTuple(spec.KeyColumns), sorted[j].keyTuple(spec.KeyColumns)
		if ki != kj {
			return ki < kj
		}
		return sorted[i].ExtractedAt.After(sorted[j].ExtractedAt)
	})

	out := make([]SourceRecord, 0, len(sorted))
	lastKey := ""
	for i, rec := range sorted {
		key := rec.keyTuple(spec.KeyColumns)
		if i > 0 && key == lastKey {
			stats.Deduplicated++
			continue
		}
		lastKey = key
		out = append(out, rec)
	}

	out = r.cleanIdentifiers(out, spec, &stats)
	stats.Kept = len(out)
	return out, stats
}

// cleanIdentifiers normalizes every identifier column through
// text.PatientID. The master patient table never loses rows: a failed
// column becomes null. Other tables keep a row as long as at least one
// identifier column survived.
func (r *Reducer) cleanIdentifiers(records []SourceRecord, spec TableSpec, stats *ReduceStats) []SourceRecord {
	if len(spec.IdentifierColumns) == 0 {
		return records
	}

	kept := records[:0]
	for _, rec := range records {
		anyValid := false
		for _, col := range spec.IdentifierColumns {
			raw, present := rec.Payload[col]
			if !present {
				continue
			}
			if id, ok := text.PatientID(raw); ok {
				rec.Payload[col] = id
				anyValid = true
			} else {
				rec.Payload[col] = nil
				stats.NulledIDs++
			}
		}
		if spec.Master || anyValid {
			kept = append(kept, rec)
			continue
		}
		stats.Discarded++
		r.log.Warn().
			Str("table", spec.Name).
			Str("key", rec.keyTuple(spec.KeyColumns)).
			Msg("discarding record: no representable identifier")
	}
	return kept
}
