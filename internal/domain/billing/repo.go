package billing

import "context"

// LedgerRepository reads the silver billing snapshot.
type LedgerRepository interface {
	ListLines(ctx context.Context) ([]LedgerLine, error)
}
