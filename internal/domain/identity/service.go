package identity

import (
	"github.com/finops/finops/internal/platform/text"
)

// Resolver evaluates the match-strategy cascade against an in-memory
// index of the reference table. Construction is done once per run; the
// reference data is read-only for the lifetime of the resolver.
type Resolver struct {
	byCode     map[int64][]int64
	bySecondary map[SecondaryKind]map[int64][]int64
	byNameUnit map[nameUnitKey][]int64
}

type nameUnitKey struct {
	name string
	unit int64
}

// NewResolver indexes the active reference patients. Inactive rows are
// excluded from every strategy.
func NewResolver(refs []PatientRef) *Resolver {
	r := &Resolver{
		byCode:      make(map[int64][]int64),
		bySecondary: make(map[SecondaryKind]map[int64][]int64),
		byNameUnit:  make(map[nameUnitKey][]int64),
	}
	for _, s := range secondaryStrategies {
		r.bySecondary[s.Kind] = make(map[int64][]int64)
	}

	for _, ref := range refs {
		if ref.Inactive {
			continue
		}
		for _, code := range ref.Codes {
			r.byCode[code] = appendUnique(r.byCode[code], ref.ID)
		}
		for _, sec := range ref.Secondary {
			idx, ok := r.bySecondary[sec.Kind]
			if !ok {
				continue
			}
			idx[sec.Value] = appendUnique(idx[sec.Value], ref.ID)
		}
		for _, name := range []string{text.FirstName(ref.WifeFirstName), text.FirstName(ref.HusbandFirstName)} {
			if name == "" {
				continue
			}
			key := nameUnitKey{name: name, unit: ref.UnitID}
			r.byNameUnit[key] = appendUnique(r.byNameUnit[key], ref.ID)
		}
	}
	return r
}

// Resolve runs the cascade for one record. A strategy yielding more than
// one candidate abstains; the first strategy with exactly one candidate
// wins; if every strategy abstains the outcome is the Unresolved sentinel.
func (r *Resolver) Resolve(rawCode any, rctx ResolutionContext) Resolution {
	code, codeOK := text.PatientID(rawCode)

	if codeOK {
		if id, ok := single(r.byCode[code]); ok {
			return Resolution{PatientID: id, Strategy: StrategyDirectCode}
		}
		for _, s := range secondaryStrategies {
			if id, ok := single(r.bySecondary[s.Kind][code]); ok {
				return Resolution{PatientID: id, Strategy: s.Strategy}
			}
		}
	}

	if id, ok := r.matchNameUnit(rctx); ok {
		return Resolution{PatientID: id, Strategy: StrategyNameUnit}
	}

	return Resolution{PatientID: Unresolved, Strategy: StrategyNone}
}

// matchNameUnit matches the record's payer or patient first name against
// the reference couple names within the same clinic unit.
func (r *Resolver) matchNameUnit(rctx ResolutionContext) (int64, bool) {
	var candidates []int64
	for _, raw := range []string{rctx.PayerName, rctx.PatientName} {
		name := text.FirstName(raw)
		if name == "" {
			continue
		}
		for _, id := range r.byNameUnit[nameUnitKey{name: name, unit: rctx.UnitID}] {
			candidates = appendUnique(candidates, id)
		}
	}
	return single(candidates)
}

func single(ids []int64) (int64, bool) {
	if len(ids) == 1 {
		return ids[0], true
	}
	return 0, false
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
