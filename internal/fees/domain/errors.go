package fees

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound is returned when the input cannot be opened.
	ErrInputNotFound = errors.New("fees: input not found")
	// ErrMalformedDate is returned when a date field does not match the run's date format.
	ErrMalformedDate = errors.New("fees: malformed date")
	// ErrMissingField is returned when a required column is absent from the header.
	ErrMissingField = errors.New("fees: missing field")
	// ErrMalformedRecord is returned when a row cannot be read as a loan record.
	ErrMalformedRecord = errors.New("fees: malformed record")
	// ErrUnsupportedDateFormat is returned for a date format other than MM/DD/YYYY or MM/DD/YY.
	ErrUnsupportedDateFormat = errors.New("fees: unsupported date format")
	// ErrNegativeFee is returned when a negative amount is added to a patron total.
	ErrNegativeFee = errors.New("fees: negative fee")
	// ErrEmptyPatronID is returned when a fee is accumulated without a patron id.
	ErrEmptyPatronID = errors.New("fees: empty patron id")
	// ErrNilReportRun is returned when saving a nil report run.
	ErrNilReportRun = errors.New("fees: nil report run")
	// ErrReportRunNotFound is returned when a report run is not found.
	ErrReportRunNotFound = errors.New("fees: report run not found")
)

// InputNotFoundError reports an input path that does not exist or cannot be read.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("fees: input %q not found: %v", e.Path, e.Err)
}

func (e *InputNotFoundError) Unwrap() []error {
	return []error{ErrInputNotFound, e.Err}
}

// MalformedDateError carries the row context of a date that failed to parse.
type MalformedDateError struct {
	Line   int
	Field  string
	Value  string
	Row    string
	Format DateFormat
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("fees: line %d: field %s: value %q does not match %s (row %q)", e.Line, e.Field, e.Value, e.Format, e.Row)
}

func (e *MalformedDateError) Unwrap() error { return ErrMalformedDate }

// MissingFieldError names a required column absent from the header.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("fees: header is missing required column %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// MalformedRecordError reports a row that is not a usable loan record.
type MalformedRecordError struct {
	Line   int
	Row    string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("fees: line %d: %s (row %q)", e.Line, e.Reason, e.Row)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }
