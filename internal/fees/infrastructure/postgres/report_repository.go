package postgres

import (
	"context"
	"database/sql"
	"errors"

	fees "library-fees/internal/fees/domain"
)

// ReportRunRepository persists report runs and their rows.
type ReportRunRepository struct {
	db *sql.DB
}

// NewReportRunRepository constructs a repository.
func NewReportRunRepository(db *sql.DB) *ReportRunRepository {
	return &ReportRunRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Save upserts the run and replaces its rows in one transaction.
func (r *ReportRunRepository) Save(ctx context.Context, run *fees.ReportRun) error {
	if r == nil || r.db == nil {
		return errors.New("report run repo: nil db")
	}
	if run == nil {
		return fees.ErrNilReportRun
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO fee_report_runs (
	id, branch_id, input_name, input_digest, date_format,
	record_count, patron_count, total_fees, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
	branch_id = EXCLUDED.branch_id,
	input_name = EXCLUDED.input_name,
	input_digest = EXCLUDED.input_digest,
	date_format = EXCLUDED.date_format,
	record_count = EXCLUDED.record_count,
	patron_count = EXCLUDED.patron_count,
	total_fees = EXCLUDED.total_fees,
	created_at = EXCLUDED.created_at`,
		run.ID, run.BranchID, run.InputName, run.InputDigest, string(run.DateFormat),
		run.RecordCount, run.PatronCount, run.TotalFees, run.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fee_report_rows WHERE run_id = $1`, run.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for i, row := range run.Rows {
		_, err := tx.ExecContext(ctx, `
INSERT INTO fee_report_rows (run_id, position, patron_id, late_fees)
VALUES ($1,$2,$3,$4)`,
			run.ID, i, row.PatronID, row.LateFees)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Get fetches a run with its rows in report order.
func (r *ReportRunRepository) Get(ctx context.Context, id string) (*fees.ReportRun, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report run repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, branch_id, input_name, input_digest, date_format,
	record_count, patron_count, total_fees, created_at
FROM fee_report_runs
WHERE id = $1
LIMIT 1`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT patron_id, late_fees
FROM fee_report_rows
WHERE run_id = $1
ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run.Rows = make([]fees.FeeReportRow, 0, run.PatronCount)
	for rows.Next() {
		var item fees.FeeReportRow
		if err := rows.Scan(&item.PatronID, &item.LateFees); err != nil {
			return nil, err
		}
		run.Rows = append(run.Rows, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecent lists runs newest first. A non-positive limit lists all.
func (r *ReportRunRepository) ListRecent(ctx context.Context, branchID string, limit int) ([]fees.ReportRun, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report run repo: nil db")
	}
	var limitArg sql.NullInt64
	if limit > 0 {
		limitArg = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, branch_id, input_name, input_digest, date_format,
	record_count, patron_count, total_fees, created_at
FROM fee_report_runs
WHERE ($1::text = '' OR branch_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2`, branchID, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fees.ReportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRun(row rowScanner) (*fees.ReportRun, error) {
	var run fees.ReportRun
	var format string
	err := row.Scan(
		&run.ID,
		&run.BranchID,
		&run.InputName,
		&run.InputDigest,
		&format,
		&run.RecordCount,
		&run.PatronCount,
		&run.TotalFees,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fees.ErrReportRunNotFound
		}
		return nil, err
	}
	run.DateFormat = fees.DateFormat(format)
	run.CreatedAt = run.CreatedAt.UTC()
	return &run, nil
}
