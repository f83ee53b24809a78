package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReportGenerated is emitted after a report has been written.
type ReportGenerated struct {
	RunID       string          `json:"run_id"`
	BranchID    string          `json:"branch_id"`
	InputName   string          `json:"input_name"`
	RecordCount int             `json:"record_count"`
	PatronCount int             `json:"patron_count"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// ReportGeneratedEvent is the outbox type name of ReportGenerated.
const ReportGeneratedEvent = "fees.report_generated"

// EventName implements eventing.Named.
func (ReportGenerated) EventName() string { return ReportGeneratedEvent }

// ReportPublisher emits report generated events.
type ReportPublisher interface {
	PublishReportGenerated(ctx context.Context, event ReportGenerated) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
