package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotRepoPG struct{ pool *pgxpool.Pool }

func NewSnapshotRepoPG(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepoPG{pool: pool}
}

// extractionColumn is appended by the extraction jobs to every bronze row.
const extractionColumn = "extraction_timestamp"

// Table and column names come from the fixed TableSpec list and from our
// own migrations, never from user input, so they are interpolated directly.

func (r *snapshotRepoPG) ReadBronze(ctx context.Context, spec TableSpec) ([]SourceRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT * FROM bronze.`+spec.Name)
	if err != nil {
		return nil, fmt.Errorf("read bronze.%s: %w", spec.Name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []SourceRecord
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan bronze.%s: %w", spec.Name, err)
		}
		rec := SourceRecord{Table: spec.Name, Payload: make(map[string]any, len(fields))}
		for i, fd := range fields {
			name := string(fd.Name)
			if name == extractionColumn {
				if ts, ok := values[i].(time.Time); ok {
					rec.ExtractedAt = ts
				}
				continue
			}
			rec.Payload[name] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bronze.%s: %w", spec.Name, err)
	}
	return records, nil
}

// ReplaceSilver drops and recreates silver.<table> with the reduced
// snapshot inside one transaction. Identifier columns are typed BIGINT;
// everything else is carried as text payload.
func (r *snapshotRepoPG) ReplaceSilver(ctx context.Context, spec TableSpec, records []SourceRecord) error {
	columns := payloadColumns(records)
	identifier := make(map[string]bool, len(spec.IdentifierColumns))
	for _, col := range spec.IdentifierColumns {
		identifier[col] = true
	}

	defs := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		typ := "TEXT"
		if identifier[col] {
			typ = "BIGINT"
		}
		defs = append(defs, fmt.Sprintf("%s %s", col, typ))
	}
	defs = append(defs, extractionColumn+" TIMESTAMPTZ NOT NULL")

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin silver.%s replace: %w", spec.Name, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS silver.`+spec.Name); err != nil {
		return fmt.Errorf("drop silver.%s: %w", spec.Name, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE TABLE silver.%s (%s)`, spec.Name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create silver.%s: %w", spec.Name, err)
	}

	if len(records) > 0 {
		placeholders := make([]string, len(columns)+1)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		insertSQL := fmt.Sprintf(`INSERT INTO silver.%s (%s, %s) VALUES (%s)`,
			spec.Name, strings.Join(columns, ", "), extractionColumn, strings.Join(placeholders, ", "))

		batch := &pgx.Batch{}
		for _, rec := range records {
			args := make([]any, 0, len(columns)+1)
			for _, col := range columns {
				args = append(args, silverValue(rec.Payload[col], identifier[col]))
			}
			args = append(args, rec.ExtractedAt)
			batch.Queue(insertSQL, args...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert silver.%s: %w", spec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit silver.%s: %w", spec.Name, err)
	}
	return nil
}

func payloadColumns(records []SourceRecord) []string {
	seen := map[string]bool{}
	for _, rec := range records {
		for col := range rec.Payload {
			seen[col] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func silverValue(v any, isIdentifier bool) any {
	if v == nil {
		return nil
	}
	if isIdentifier {
		// Identifier columns were normalized to int64 by the reducer.
		if id, ok := v.(int64); ok {
			return id
		}
		return nil
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
