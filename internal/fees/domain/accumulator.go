package fees

import "github.com/shopspring/decimal"

// FeeAccumulator keeps a running late-fee total per patron in first-seen order.
// It is local to one report run and is not safe for concurrent use.
type FeeAccumulator struct {
	order  []string
	totals map[string]decimal.Decimal
}

// NewFeeAccumulator returns an empty accumulator.
func NewFeeAccumulator() *FeeAccumulator {
	return &FeeAccumulator{totals: make(map[string]decimal.Decimal)}
}

// GetOrInsertZero returns the patron's running total, registering the patron
// with a zero total the first time it is seen.
func (a *FeeAccumulator) GetOrInsertZero(patronID string) decimal.Decimal {
	if total, ok := a.totals[patronID]; ok {
		return total
	}
	a.order = append(a.order, patronID)
	a.totals[patronID] = decimal.Zero
	return decimal.Zero
}

// Add accumulates fee into the patron's total.
func (a *FeeAccumulator) Add(patronID string, fee decimal.Decimal) error {
	if patronID == "" {
		return ErrEmptyPatronID
	}
	if fee.IsNegative() {
		return ErrNegativeFee
	}
	a.totals[patronID] = a.GetOrInsertZero(patronID).Add(fee)
	return nil
}

// Total looks up a patron without registering it.
func (a *FeeAccumulator) Total(patronID string) (decimal.Decimal, bool) {
	total, ok := a.totals[patronID]
	return total, ok
}

// Len returns the number of distinct patrons seen.
func (a *FeeAccumulator) Len() int {
	return len(a.order)
}

// Rows returns one row per patron in first-seen order.
func (a *FeeAccumulator) Rows() []FeeReportRow {
	rows := make([]FeeReportRow, 0, len(a.order))
	for _, patronID := range a.order {
		rows = append(rows, FeeReportRow{PatronID: patronID, LateFees: a.totals[patronID]})
	}
	return rows
}
