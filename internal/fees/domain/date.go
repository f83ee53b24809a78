package fees

import (
	"strings"
	"time"
)

// DateFormat is the single date format agreed for every date field of a run.
type DateFormat string

const (
	// DateFormatFourDigitYear accepts dates such as 01/05/2024 or 1/5/2024.
	DateFormatFourDigitYear DateFormat = "MM/DD/YYYY"
	// DateFormatTwoDigitYear accepts dates such as 01/05/24. Years 69-99 map to 19xx, 00-68 to 20xx.
	DateFormatTwoDigitYear DateFormat = "MM/DD/YY"

	// DefaultDateFormat is used when no format is configured.
	DefaultDateFormat = DateFormatFourDigitYear
)

// ParseDateFormat validates a configured format name.
func ParseDateFormat(value string) (DateFormat, error) {
	switch DateFormat(strings.ToUpper(strings.TrimSpace(value))) {
	case "":
		return DefaultDateFormat, nil
	case DateFormatFourDigitYear:
		return DateFormatFourDigitYear, nil
	case DateFormatTwoDigitYear:
		return DateFormatTwoDigitYear, nil
	default:
		return "", ErrUnsupportedDateFormat
	}
}

func (f DateFormat) layout() string {
	switch f {
	case DateFormatTwoDigitYear:
		return "1/2/06"
	case DateFormatFourDigitYear:
		return "1/2/2006"
	default:
		return ""
	}
}

// Valid reports whether f is a supported format.
func (f DateFormat) Valid() bool {
	return f.layout() != ""
}

// Parse reads a calendar date. The result is midnight UTC.
func (f DateFormat) Parse(value string) (time.Time, error) {
	layout := f.layout()
	if layout == "" {
		return time.Time{}, ErrUnsupportedDateFormat
	}
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return civilDate(t), nil
}

// Format renders a date in the zero-padded form of f.
func (f DateFormat) Format(t time.Time) string {
	switch f {
	case DateFormatTwoDigitYear:
		return t.Format("01/02/06")
	default:
		return t.Format("01/02/2006")
	}
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// daysBetween returns the signed number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int((civilDate(b).Unix() - civilDate(a).Unix()) / secondsPerDay)
}
