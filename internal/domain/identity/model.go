// Package identity maps the local customer/record codes used by the
// source systems onto the canonical patient identifier. Resolution runs
// an ordered cascade of match strategies against the authoritative
// patient reference table; the first strategy yielding exactly one
// candidate wins, ambiguous strategies abstain, and a record no strategy
// can place gets the Unresolved sentinel.
package identity

// Unresolved is the sentinel canonical id for records no strategy could
// match. It is distinct from any real id and from "not yet evaluated"
// (null), and is never used as a join key downstream.
const Unresolved int64 = -1

// SecondaryKind names one of the secondary identifier columns of the
// reference table.
type SecondaryKind string

const (
	KindWife          SecondaryKind = "wife"
	KindHusband       SecondaryKind = "husband"
	KindGuardian1     SecondaryKind = "guardian1"
	KindGuardian2     SecondaryKind = "guardian2"
	KindWifeLegacy    SecondaryKind = "wife_legacy"
	KindHusbandLegacy SecondaryKind = "husband_legacy"
	KindWifePC        SecondaryKind = "wife_pc"
	KindHusbandPC     SecondaryKind = "husband_pc"
	KindGuardian1PC   SecondaryKind = "guardian1_pc"
	KindGuardian2PC   SecondaryKind = "guardian2_pc"
	KindWifeFC        SecondaryKind = "wife_fc"
	KindHusbandFC     SecondaryKind = "husband_fc"
	KindWifeBA        SecondaryKind = "wife_ba"
	KindHusbandBA     SecondaryKind = "husband_ba"
)

// SecondaryID is one (kind, value) identifier attached to a reference
// patient.
type SecondaryID struct {
	Kind  SecondaryKind
	Value int64
}

// PatientRef is one row of the authoritative patient reference table.
// Codes holds the registration codes the patient is known by across the
// source systems; Secondary holds the kind-tagged historical identifiers.
type PatientRef struct {
	ID               int64
	Codes            []int64
	Secondary        []SecondaryID
	WifeFirstName    string
	HusbandFirstName string
	UnitID           int64
	Inactive         bool
}

// Strategy labels one match strategy for audit.
type Strategy string

const (
	StrategyDirectCode    Strategy = "direct_code"
	StrategyWife          Strategy = "wife_record"
	StrategyHusband       Strategy = "husband_record"
	StrategyGuardian1     Strategy = "guardian1_record"
	StrategyGuardian2     Strategy = "guardian2_record"
	StrategyWifeLegacy    Strategy = "wife_record_legacy"
	StrategyHusbandLegacy Strategy = "husband_record_legacy"
	StrategyWifePC        Strategy = "wife_record_pc"
	StrategyHusbandPC     Strategy = "husband_record_pc"
	StrategyGuardian1PC   Strategy = "guardian1_record_pc"
	StrategyGuardian2PC   Strategy = "guardian2_record_pc"
	StrategyWifeFC        Strategy = "wife_record_fc"
	StrategyHusbandFC     Strategy = "husband_record_fc"
	StrategyWifeBA        Strategy = "wife_record_ba"
	StrategyHusbandBA     Strategy = "husband_record_ba"
	StrategyNameUnit      Strategy = "name_unit"
	StrategyNone          Strategy = "unresolved"
)

// secondaryStrategies fixes the cascade position of each secondary
// identifier kind, evaluated after direct_code and before name_unit.
var secondaryStrategies = []struct {
	Kind     SecondaryKind
	Strategy Strategy
}{
	{KindWife, StrategyWife},
	{KindHusband, StrategyHusband},
	{KindGuardian1, StrategyGuardian1},
	{KindGuardian2, StrategyGuardian2},
	{KindWifeLegacy, StrategyWifeLegacy},
	{KindHusbandLegacy, StrategyHusbandLegacy},
	{KindWifePC, StrategyWifePC},
	{KindHusbandPC, StrategyHusbandPC},
	{KindGuardian1PC, StrategyGuardian1PC},
	{KindGuardian2PC, StrategyGuardian2PC},
	{KindWifeFC, StrategyWifeFC},
	{KindHusbandFC, StrategyHusbandFC},
	{KindWifeBA, StrategyWifeBA},
	{KindHusbandBA, StrategyHusbandBA},
}

// ResolutionContext carries the non-code fields of the record being
// resolved that the name+unit heuristic may use. Names are raw; the
// resolver normalizes them.
type ResolutionContext struct {
	PayerName   string
	PatientName string
	UnitID      int64
}

// Resolution is the audited outcome of resolving one record.
type Resolution struct {
	PatientID int64
	Strategy  Strategy
}

// Resolved reports whether a real canonical id was found.
func (r Resolution) Resolved() bool { return r.PatientID != Unresolved }

// Annotation ties one billing ledger line to its resolution outcome; one
// row per line is written to the gold annotation table every run.
type Annotation struct {
	LineID    int64
	PatientID int64
	Strategy  Strategy
}
