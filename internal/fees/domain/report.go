package fees

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// FeeReportRow is one output row: a patron and the patron's total late fees.
type FeeReportRow struct {
	PatronID string          `json:"patron_id"`
	LateFees decimal.Decimal `json:"late_fees"`
}

// FormattedLateFees renders the total with two fraction digits.
func (r FeeReportRow) FormattedLateFees() string {
	return FormatAmount(r.LateFees)
}

// MarshalJSON renders late_fees in the report's two-digit form.
func (r FeeReportRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PatronID string `json:"patron_id"`
		LateFees string `json:"late_fees"`
	}{PatronID: r.PatronID, LateFees: r.FormattedLateFees()})
}

// Report is the result of one pass over the input.
type Report struct {
	Rows        []FeeReportRow
	RecordCount int
}

// TotalFees sums all patron totals.
func (r Report) TotalFees() decimal.Decimal {
	total := decimal.Zero
	for _, row := range r.Rows {
		total = total.Add(row.LateFees)
	}
	return total
}

// ReportRun records a generated report together with its rows.
type ReportRun struct {
	ID          string          `json:"id"`
	BranchID    string          `json:"branch_id"`
	InputName   string          `json:"input_name"`
	InputDigest string          `json:"input_digest"`
	DateFormat  DateFormat      `json:"date_format"`
	RecordCount int             `json:"record_count"`
	PatronCount int             `json:"patron_count"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	CreatedAt   time.Time       `json:"created_at"`
	Rows        []FeeReportRow  `json:"rows,omitempty"`
}

// NewReportRun builds a run record for report.
func NewReportRun(id string, report Report, format DateFormat, createdAt time.Time) *ReportRun {
	rows := make([]FeeReportRow, len(report.Rows))
	copy(rows, report.Rows)
	return &ReportRun{
		ID:          id,
		DateFormat:  format,
		RecordCount: report.RecordCount,
		PatronCount: len(rows),
		TotalFees:   report.TotalFees(),
		CreatedAt:   createdAt.UTC(),
		Rows:        rows,
	}
}

// Report returns the run's rows as a report.
func (r *ReportRun) Report() Report {
	return Report{Rows: r.Rows, RecordCount: r.RecordCount}
}

// Clone returns a deep copy.
func (r *ReportRun) Clone() *ReportRun {
	if r == nil {
		return nil
	}
	out := *r
	if r.Rows != nil {
		out.Rows = make([]FeeReportRow, len(r.Rows))
		copy(out.Rows, r.Rows)
	}
	return &out
}

// ReportRunRepository persists report runs.
type ReportRunRepository interface {
	Save(ctx context.Context, run *ReportRun) error
	// Get returns the run with its rows, or ErrReportRunNotFound.
	Get(ctx context.Context, id string) (*ReportRun, error)
	// ListRecent returns runs newest first, without rows. An empty branchID lists all branches.
	ListRecent(ctx context.Context, branchID string, limit int) ([]ReportRun, error)
}
