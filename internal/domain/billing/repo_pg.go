package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepoPG struct{ pool *pgxpool.Pool }

func NewLedgerRepoPG(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepoPG{pool: pool}
}

// ListLines reads every billing line, including ones whose customer code
// never normalized. Resolution decides what they map to; the ledger
// itself is never filtered.
func (r *ledgerRepoPG) ListLines(ctx context.Context) ([]LedgerLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT NULLIF(id, '')::bigint,
		       COALESCE(customer_code, ''),
		       COALESCE(payer_name, ''),
		       COALESCE(patient_name, ''),
		       COALESCE(category, ''),
		       COALESCE(description, ''),
		       COALESCE(NULLIF(amount, '')::float8, 0),
		       NULLIF(issued_at, '')::timestamptz,
		       COALESCE(grp, ''),
		       COALESCE(branch, ''),
		       COALESCE(NULLIF(unit_id, '')::bigint, 0)
		FROM silver.billing_lines
		ORDER BY NULLIF(id, '')::bigint`)
	if err != nil {
		return nil, fmt.Errorf("list billing lines: %w", err)
	}
	defer rows.Close()

	var out []LedgerLine
	for rows.Next() {
		var line LedgerLine
		var code string
		var issuedAt *time.Time
		if err := rows.Scan(&line.ID, &code, &line.PayerName, &line.PatientName,
			&line.Category, &line.Description, &line.Amount, &issuedAt,
			&line.Group, &line.Branch, &line.UnitID); err != nil {
			return nil, fmt.Errorf("scan billing line: %w", err)
		}
		line.CustomerCode = code
		if issuedAt != nil {
			line.IssuedAt = *issuedAt
		}
		out = append(out, line)
	}
	return out, rows.Err()
}
