package notify

import "context"

// ReportMessage announces a generated late-fee report.
type ReportMessage struct {
	BranchID    string            `json:"branch_id"`
	RunID       string            `json:"run_id"`
	InputName   string            `json:"input_name"`
	RecordCount int               `json:"record_count"`
	PatronCount int               `json:"patron_count"`
	TotalFees   string            `json:"total_fees"`
	ReportURL   string            `json:"report_url"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, msg ReportMessage) error
}
