// Package billing models the financial ledger lines of the clinic group
// and classifies which of them are treatment payments. Lines arrive with
// a local customer code; identity resolution annotates each line with
// the canonical patient id (or the unresolved sentinel).
package billing

import "time"

// LedgerLine is one silver billing row.
type LedgerLine struct {
	ID           int64
	CustomerCode any
	PayerName    string
	PatientName  string
	Category     string
	Description  string
	Amount       float64
	IssuedAt     time.Time
	Group        string
	Branch       string
	UnitID       int64
}

// treatmentCategories is the closed set of management categories that
// count as treatment payments. Anything outside the set is kept in the
// ledger but excluded from cycle reconciliation.
var treatmentCategories = map[string]struct{}{
	"Coleta - Adicional": {},
	"Coleta - Crio":      {},
	"FET / FOT":          {},
	"Pró-Fiv":            {},
	"FIV":                {},
	"Inseminação":        {},
	"Ovodoação":          {},
	"Embriodoação":       {},
}

// IsTreatmentPayment reports whether the line's category is one of the
// treatment payment categories. Matching is exact: the categories are a
// controlled vocabulary in the source system.
func (l LedgerLine) IsTreatmentPayment() bool {
	_, ok := treatmentCategories[l.Category]
	return ok
}

// unitByGroupBranch maps the ERP (group, branch) code pair onto the
// clinic unit name used everywhere downstream. Branch codes carry
// leading zeros and must stay strings.
var unitByGroupBranch = map[[2]string]string{
	{"1", "10101"}: "Ibirapuera",
	{"1", "10150"}: "Ibirapuera",
	{"1", "10155"}: "Vila Mariana",
	{"1", "10104"}: "Vila Mariana",
	{"1", "10106"}: "Vila Mariana",
	{"3", "30101"}: "Campinas",
	{"6", "60101"}: "Santa Joana",
	{"5", "101"}:   "Belo Horizonte",
	{"7", "10101"}: "Salvador - Cenafert",
	{"7", "20101"}: "Salvador - Cenafert",
	{"7", "30101"}: "FIV Brasilia",
}

// UnitName resolves the clinic unit of a ledger line from its ERP group
// and branch codes. Unknown pairs yield the empty string.
func UnitName(group, branch string) string {
	return unitByGroupBranch[[2]string{group, branch}]
}
