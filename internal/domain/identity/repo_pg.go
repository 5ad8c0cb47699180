package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type referenceRepoPG struct{ pool *pgxpool.Pool }

func NewReferenceRepoPG(pool *pgxpool.Pool) ReferenceRepository {
	return &referenceRepoPG{pool: pool}
}

// ListActive assembles PatientRefs from the silver patient snapshot plus
// its code and secondary-identifier side tables. Rows whose canonical id
// failed normalization (null) cannot anchor a match and are skipped.
func (r *referenceRepoPG) ListActive(ctx context.Context) ([]PatientRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id,
		       COALESCE(wife_name, ''),
		       COALESCE(husband_name, ''),
		       COALESCE(NULLIF(unit_id, '')::bigint, 0),
		       COALESCE(NULLIF(inactive, '')::int, 0)
		FROM silver.patients
		WHERE id IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reference patients: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*PatientRef)
	var order []int64
	for rows.Next() {
		var ref PatientRef
		var inactive int
		if err := rows.Scan(&ref.ID, &ref.WifeFirstName, &ref.HusbandFirstName, &ref.UnitID, &inactive); err != nil {
			return nil, fmt.Errorf("scan reference patient: %w", err)
		}
		ref.Inactive = inactive != 0
		byID[ref.ID] = &ref
		order = append(order, ref.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reference patients: %w", err)
	}

	if err := r.loadCodes(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.loadSecondary(ctx, byID); err != nil {
		return nil, err
	}

	refs := make([]PatientRef, 0, len(order))
	for _, id := range order {
		refs = append(refs, *byID[id])
	}
	return refs, nil
}

func (r *referenceRepoPG) loadCodes(ctx context.Context, byID map[int64]*PatientRef) error {
	rows, err := r.pool.Query(ctx, `
		SELECT patient_id, code
		FROM silver.patient_codes
		WHERE patient_id IS NOT NULL AND code IS NOT NULL
		ORDER BY patient_id, code`)
	if err != nil {
		return fmt.Errorf("list patient codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var patientID, code int64
		if err := rows.Scan(&patientID, &code); err != nil {
			return fmt.Errorf("scan patient code: %w", err)
		}
		if ref, ok := byID[patientID]; ok {
			ref.Codes = append(ref.Codes, code)
		}
	}
	return rows.Err()
}

func (r *referenceRepoPG) loadSecondary(ctx context.Context, byID map[int64]*PatientRef) error {
	rows, err := r.pool.Query(ctx, `
		SELECT patient_id, kind, value
		FROM silver.patient_identifiers
		WHERE patient_id IS NOT NULL AND value IS NOT NULL
		ORDER BY patient_id, kind, value`)
	if err != nil {
		return fmt.Errorf("list patient identifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var patientID, value int64
		var kind string
		if err := rows.Scan(&patientID, &kind, &value); err != nil {
			return fmt.Errorf("scan patient identifier: %w", err)
		}
		if ref, ok := byID[patientID]; ok {
			ref.Secondary = append(ref.Secondary, SecondaryID{Kind: SecondaryKind(kind), Value: value})
		}
	}
	return rows.Err()
}

type annotationRepoPG struct{ pool *pgxpool.Pool }

func NewAnnotationRepoPG(pool *pgxpool.Pool) AnnotationRepository {
	return &annotationRepoPG{pool: pool}
}

// ReplaceBillingAnnotations drops and recreates the gold annotation table
// in one transaction, full-replace semantics like every gold output.
func (r *annotationRepoPG) ReplaceBillingAnnotations(ctx context.Context, annotations []Annotation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin billing_resolution replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS gold.billing_resolution`); err != nil {
		return fmt.Errorf("drop gold.billing_resolution: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		CREATE TABLE gold.billing_resolution (
			line_id BIGINT PRIMARY KEY,
			patient_id BIGINT NOT NULL,
			match_strategy TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create gold.billing_resolution: %w", err)
	}

	batch := &pgx.Batch{}
	for _, a := range annotations {
		batch.Queue(`INSERT INTO gold.billing_resolution (line_id, patient_id, match_strategy) VALUES ($1, $2, $3)`,
			a.LineID, a.PatientID, string(a.Strategy))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert gold.billing_resolution: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit gold.billing_resolution: %w", err)
	}
	return nil
}
