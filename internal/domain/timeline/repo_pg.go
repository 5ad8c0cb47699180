package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sourceRepoPG struct{ pool *pgxpool.Pool }

func NewSourceRepoPG(pool *pgxpool.Pool) SourceRepository {
	return &sourceRepoPG{pool: pool}
}

func (r *sourceRepoPG) ListTreatments(ctx context.Context) ([]Treatment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT NULLIF(id, '')::bigint,
		       patient_id,
		       COALESCE(donor_patient_id, 0),
		       NULLIF(procedure_date, '')::timestamptz,
		       NULLIF(induction_start, '')::timestamptz,
		       COALESCE(NULLIF(attempt, '')::bigint, 0),
		       COALESCE(procedure_type, ''),
		       COALESCE(doctor, ''),
		       COALESCE(unit, ''),
		       COALESCE(outcome, ''),
		       COALESCE(transfer_day, '')
		FROM silver.treatments
		WHERE patient_id IS NOT NULL
		ORDER BY patient_id, NULLIF(id, '')::bigint`)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()

	var out []Treatment
	for rows.Next() {
		var tr Treatment
		var procedureDate, inductionStart *time.Time
		if err := rows.Scan(&tr.ID, &tr.PatientID, &tr.DonorPatientID, &procedureDate, &inductionStart,
			&tr.Attempt, &tr.ProcedureType, &tr.Doctor, &tr.Unit, &tr.Outcome, &tr.TransferDay); err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		if procedureDate != nil {
			tr.ProcedureDate = *procedureDate
		}
		if inductionStart != nil {
			tr.InductionStart = *inductionStart
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (r *sourceRepoPG) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT NULLIF(id, '')::bigint,
		       patient_id,
		       NULLIF(appointment_date, '')::timestamptz,
		       COALESCE(procedure_name, ''),
		       COALESCE(NULLIF(confirmed, '')::int, 0)
		FROM silver.appointments
		WHERE patient_id IS NOT NULL
		  AND NULLIF(appointment_date, '') IS NOT NULL
		ORDER BY patient_id, NULLIF(id, '')::bigint`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		var confirmed int
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Date, &a.ProcedureName, &confirmed); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		a.Confirmed = confirmed == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

// labSources maps each freeze/thaw silver table to its event type.
var labSources = []struct {
	table string
	typ   EventType
}{
	{"oocyte_freezes", TypeOocyteFreeze},
	{"oocyte_thaws", TypeOocyteThaw},
	{"embryo_freezes", TypeEmbryoFreeze},
	{"embryo_thaws", TypeEmbryoThaw},
}

func (r *sourceRepoPG) ListLabEvents(ctx context.Context) ([]LabEvent, error) {
	var out []LabEvent
	for _, src := range labSources {
		events, err := r.listLabTable(ctx, src.table, src.typ)
		if err != nil {
			return nil, err
		}
		out = append(out, events...)
	}
	return out, nil
}

func (r *sourceRepoPG) listLabTable(ctx context.Context, table string, typ EventType) ([]LabEvent, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT NULLIF(id, '')::bigint,
		       patient_id,
		       NULLIF(event_date, '')::timestamptz,
		       COALESCE(detail, ''),
		       COALESCE(unit, '')
		FROM silver.%s
		WHERE patient_id IS NOT NULL
		  AND NULLIF(event_date, '') IS NOT NULL
		ORDER BY patient_id, NULLIF(id, '')::bigint`, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []LabEvent
	for rows.Next() {
		ev := LabEvent{Type: typ}
		if err := rows.Scan(&ev.ID, &ev.PatientID, &ev.Date, &ev.Detail, &ev.Unit); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

type timelineRepoPG struct{ pool *pgxpool.Pool }

func NewTimelineRepoPG(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepoPG{pool: pool}
}

func (r *timelineRepoPG) Replace(ctx context.Context, events []Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin patient_timeline replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS gold.patient_timeline`); err != nil {
		return fmt.Errorf("drop gold.patient_timeline: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		CREATE TABLE gold.patient_timeline (
			position BIGINT NOT NULL,
			patient_id BIGINT NOT NULL,
			source_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			event_date DATE NOT NULL,
			date_estimated BOOLEAN NOT NULL,
			event_value TEXT NOT NULL,
			attempt BIGINT NOT NULL,
			unit TEXT NOT NULL,
			outcome TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create gold.patient_timeline: %w", err)
	}

	batch := &pgx.Batch{}
	for i, ev := range events {
		batch.Queue(`
			INSERT INTO gold.patient_timeline
				(position, patient_id, source_id, event_type, event_date, date_estimated, event_value, attempt, unit, outcome)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			i, ev.PatientID, ev.SourceID, string(ev.Type), ev.Date, ev.Estimated, ev.Value, ev.Attempt, ev.Unit, ev.Outcome)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert gold.patient_timeline: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit gold.patient_timeline: %w", err)
	}
	return nil
}
