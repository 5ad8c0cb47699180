package cycles

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type summaryRepoPG struct{ pool *pgxpool.Pool }

func NewSummaryRepoPG(pool *pgxpool.Pool) SummaryRepository {
	return &summaryRepoPG{pool: pool}
}

func (r *summaryRepoPG) ReplaceSummaries(ctx context.Context, summaries []Summary) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cycle_summary replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS gold.cycle_summary`); err != nil {
		return fmt.Errorf("drop gold.cycle_summary: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		CREATE TABLE gold.cycle_summary (
			patient_id BIGINT PRIMARY KEY,
			cycles INT NOT NULL,
			with_continuation INT NOT NULL,
			without_continuation INT NOT NULL,
			payments INT NOT NULL,
			payments_total NUMERIC(14,2) NOT NULL,
			first_cycle DATE,
			last_cycle DATE,
			first_payment DATE,
			last_payment DATE,
			first_event DATE,
			last_event DATE,
			unit TEXT NOT NULL,
			is_donor BOOLEAN NOT NULL,
			cycles_no_payments BOOLEAN NOT NULL,
			more_cycles_than_payments BOOLEAN NOT NULL,
			payments_no_cycles BOOLEAN NOT NULL,
			more_payments_than_cycles BOOLEAN NOT NULL
		)`); err != nil {
		return fmt.Errorf("create gold.cycle_summary: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range summaries {
		batch.Queue(`
			INSERT INTO gold.cycle_summary
				(patient_id, cycles, with_continuation, without_continuation,
				 payments, payments_total,
				 first_cycle, last_cycle, first_payment, last_payment, first_event, last_event,
				 unit, is_donor,
				 cycles_no_payments, more_cycles_than_payments, payments_no_cycles, more_payments_than_cycles)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			s.PatientID, s.Cycles, s.WithContinuation, s.WithoutContinuation,
			s.Payments, s.PaymentsTotal,
			nullDate(s.FirstCycle), nullDate(s.LastCycle),
			nullDate(s.FirstPayment), nullDate(s.LastPayment),
			nullDate(s.FirstEvent), nullDate(s.LastEvent),
			s.Unit, s.IsDonor,
			s.CyclesNoPayments, s.MoreCyclesThanPayments, s.PaymentsNoCycles, s.MorePaymentsThanCycles)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert gold.cycle_summary: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit gold.cycle_summary: %w", err)
	}
	return nil
}

func (r *summaryRepoPG) ReplacePatientInfo(ctx context.Context, infos []PatientInfo) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin patient_info replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS gold.patient_info`); err != nil {
		return fmt.Errorf("drop gold.patient_info: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		CREATE TABLE gold.patient_info (
			patient_id BIGINT PRIMARY KEY,
			doctor TEXT NOT NULL,
			unit TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create gold.patient_info: %w", err)
	}

	batch := &pgx.Batch{}
	for _, info := range infos {
		batch.Queue(`INSERT INTO gold.patient_info (patient_id, doctor, unit) VALUES ($1, $2, $3)`,
			info.PatientID, info.Doctor, info.Unit)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert gold.patient_info: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit gold.patient_info: %w", err)
	}
	return nil
}

// nullDate maps the zero time to SQL NULL.
func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
