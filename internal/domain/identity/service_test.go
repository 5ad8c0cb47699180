package identity

import "testing"

func refFixture() []PatientRef {
	return []PatientRef{
		{
			ID:    175583,
			Codes: []int64{77785, 777536},
			Secondary: []SecondaryID{
				{Kind: KindWife, Value: 9001},
			},
			WifeFirstName:    "Mariana Souza",
			HusbandFirstName: "Carlos Souza",
			UnitID:           3,
		},
		{
			ID:    200100,
			Codes: []int64{88001},
			Secondary: []SecondaryID{
				{Kind: KindHusband, Value: 9002},
				{Kind: KindWifeLegacy, Value: 7500},
			},
			WifeFirstName: "Ana Lima",
			UnitID:        3,
		},
		{
			ID:            200200,
			Codes:         []int64{88002},
			WifeFirstName: "Ana Castro",
			UnitID:        3,
		},
		{
			ID:       999999,
			Codes:    []int64{55555},
			Inactive: true,
		},
	}
}

func TestResolveDirectCode(t *testing.T) {
	r := NewResolver(refFixture())

	// Both registration codes of the same patient resolve to it.
	for _, raw := range []any{"77785", "777536", int64(77785), float64(777536)} {
		got := r.Resolve(raw, ResolutionContext{})
		if got.PatientID != 175583 || got.Strategy != StrategyDirectCode {
			t.Fatalf("Resolve(%v) = %+v, want 175583 via direct_code", raw, got)
		}
	}
}

func TestResolveDottedCode(t *testing.T) {
	r := NewResolver(refFixture())

	got := r.Resolve("77.785", ResolutionContext{})
	if got.PatientID != 175583 || got.Strategy != StrategyDirectCode {
		t.Fatalf("Resolve(77.785) = %+v, want 175583 via direct_code", got)
	}
}

func TestResolveSecondaryCascade(t *testing.T) {
	r := NewResolver(refFixture())

	cases := []struct {
		raw      any
		wantID   int64
		strategy Strategy
	}{
		{int64(9001), 175583, StrategyWife},
		{int64(9002), 200100, StrategyHusband},
		{int64(7500), 200100, StrategyWifeLegacy},
	}
	for _, tc := range cases {
		got := r.Resolve(tc.raw, ResolutionContext{})
		if got.PatientID != tc.wantID || got.Strategy != tc.strategy {
			t.Fatalf("Resolve(%v) = %+v, want %d via %s", tc.raw, got, tc.wantID, tc.strategy)
		}
	}
}

func TestResolveHistoricalSystemKinds(t *testing.T) {
	refs := refFixture()
	refs[0].Secondary = append(refs[0].Secondary,
		SecondaryID{Kind: KindGuardian2PC, Value: 6200},
		SecondaryID{Kind: KindHusbandBA, Value: 6400},
	)
	refs[1].Secondary = append(refs[1].Secondary,
		SecondaryID{Kind: KindWifeFC, Value: 6200},
	)
	r := NewResolver(refs)

	cases := []struct {
		raw      any
		wantID   int64
		strategy Strategy
	}{
		// guardian2_pc sits before wife_fc in the cascade, so the
		// shared value lands on the first patient.
		{int64(6200), 175583, StrategyGuardian2PC},
		{int64(6400), 175583, StrategyHusbandBA},
	}
	for _, tc := range cases {
		got := r.Resolve(tc.raw, ResolutionContext{})
		if got.PatientID != tc.wantID || got.Strategy != tc.strategy {
			t.Fatalf("Resolve(%v) = %+v, want %d via %s", tc.raw, got, tc.wantID, tc.strategy)
		}
	}
}

func TestResolveAmbiguousCodeAbstains(t *testing.T) {
	refs := refFixture()
	// Two patients share a registration code; direct_code must abstain
	// and the cascade falls through, here to wife_record.
	refs[1].Codes = append(refs[1].Codes, 77785)
	refs[1].Secondary = append(refs[1].Secondary, SecondaryID{Kind: KindWife, Value: 77785})
	r := NewResolver(refs)

	got := r.Resolve(int64(77785), ResolutionContext{})
	if got.PatientID != 200100 || got.Strategy != StrategyWife {
		t.Fatalf("Resolve(77785) = %+v, want 200100 via wife_record", got)
	}
}

func TestResolveNameUnit(t *testing.T) {
	r := NewResolver(refFixture())

	got := r.Resolve(nil, ResolutionContext{PayerName: "MARIANA  de tal", UnitID: 3})
	if got.PatientID != 175583 || got.Strategy != StrategyNameUnit {
		t.Fatalf("Resolve by payer name = %+v, want 175583 via name_unit", got)
	}

	// Accent-insensitive, via the patient name field and husband name.
	got = r.Resolve("not-a-code", ResolutionContext{PatientName: "Cárlos Souza", UnitID: 3})
	if got.PatientID != 175583 || got.Strategy != StrategyNameUnit {
		t.Fatalf("Resolve by patient name = %+v, want 175583 via name_unit", got)
	}
}

func TestResolveNameUnitAmbiguousAbstains(t *testing.T) {
	r := NewResolver(refFixture())

	// Both Ana Lima and Ana Castro are wives in unit 3.
	got := r.Resolve(nil, ResolutionContext{PayerName: "Ana", UnitID: 3})
	if got.PatientID != Unresolved || got.Strategy != StrategyNone {
		t.Fatalf("ambiguous name = %+v, want unresolved sentinel", got)
	}
}

func TestResolveWrongUnitDoesNotMatch(t *testing.T) {
	r := NewResolver(refFixture())

	got := r.Resolve(nil, ResolutionContext{PayerName: "Mariana", UnitID: 7})
	if got.Resolved() {
		t.Fatalf("name match across units = %+v, want unresolved", got)
	}
}

func TestResolveInactiveExcluded(t *testing.T) {
	r := NewResolver(refFixture())

	got := r.Resolve(int64(55555), ResolutionContext{})
	if got.PatientID != Unresolved || got.Strategy != StrategyNone {
		t.Fatalf("Resolve(inactive code) = %+v, want unresolved sentinel", got)
	}
}

func TestResolveUnresolvedSentinel(t *testing.T) {
	r := NewResolver(refFixture())

	got := r.Resolve("0", ResolutionContext{})
	if got.PatientID != Unresolved || got.Strategy != StrategyNone || got.Resolved() {
		t.Fatalf("Resolve(0) = %+v, want -1 / unresolved", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewResolver(refFixture())

	first := r.Resolve("777536", ResolutionContext{PayerName: "Ana", UnitID: 3})
	for i := 0; i < 50; i++ {
		if got := r.Resolve("777536", ResolutionContext{PayerName: "Ana", UnitID: 3}); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}
