package fees

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Input and output column names.
const (
	ColumnPatronID     = "patron_id"
	ColumnDateDue      = "date_due"
	ColumnDateReturned = "date_returned"
	ColumnDateCheckout = "date_checkout"
	ColumnLateFees     = "late_fees"
)

// RequiredColumns lists the header columns every input must carry.
var RequiredColumns = []string{ColumnPatronID, ColumnDateDue, ColumnDateReturned}

// RawLoanRecord is one input row as text, before date parsing.
type RawLoanRecord struct {
	Line         int
	PatronID     string
	DateDue      string
	DateReturned string
	// Row is the raw row text, kept for error context.
	Row string
}

// LoanRecord is a parsed input row.
type LoanRecord struct {
	PatronID     string
	DateDue      time.Time
	DateReturned time.Time
}

// ParseLoanRecord converts a raw row using the run's date format.
func ParseLoanRecord(raw RawLoanRecord, format DateFormat) (LoanRecord, error) {
	patronID := strings.TrimSpace(raw.PatronID)
	if patronID == "" {
		return LoanRecord{}, &MalformedRecordError{Line: raw.Line, Row: raw.Row, Reason: "empty " + ColumnPatronID}
	}
	due, err := format.Parse(raw.DateDue)
	if err != nil {
		return LoanRecord{}, &MalformedDateError{Line: raw.Line, Field: ColumnDateDue, Value: raw.DateDue, Row: raw.Row, Format: format}
	}
	returned, err := format.Parse(raw.DateReturned)
	if err != nil {
		return LoanRecord{}, &MalformedDateError{Line: raw.Line, Field: ColumnDateReturned, Value: raw.DateReturned, Row: raw.Row, Format: format}
	}
	return LoanRecord{
		PatronID:     patronID,
		DateDue:      due,
		DateReturned: returned,
	}, nil
}

// LateFee returns the fee owed for this loan.
func (r LoanRecord) LateFee() decimal.Decimal {
	return ComputeLateFee(r.DateDue, r.DateReturned)
}
