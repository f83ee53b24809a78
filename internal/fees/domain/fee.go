package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyLateFee is charged per whole day an item is returned after its due date.
var DailyLateFee = decimal.New(25, -2)

// LateDays returns the whole days returned lies after due, clamped at zero.
func LateDays(due, returned time.Time) int {
	days := daysBetween(due, returned)
	if days < 0 {
		return 0
	}
	return days
}

// ComputeLateFee returns the late fee for a single loan. It is never negative.
func ComputeLateFee(due, returned time.Time) decimal.Decimal {
	return DailyLateFee.Mul(decimal.NewFromInt(int64(LateDays(due, returned))))
}

// FormatAmount renders an amount with exactly two fraction digits, rounding half up.
func FormatAmount(amount decimal.Decimal) string {
	// StringFixed rounds half away from zero, which is half up for the non-negative totals kept here.
	return amount.StringFixed(2)
}
