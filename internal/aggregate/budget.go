package aggregate

import (
	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// Budget status labels.
const (
	StatusUnset   = "Unset"
	StatusOnTrack = "On track"
	StatusOver    = "Over"
)

// MaxProgress caps the progress bar percentage.
const MaxProgress = 150.0

// BudgetStatus compares spending against the monthly budget.
type BudgetStatus struct {
	Label    string          `json:"label"`
	Budget   decimal.Decimal `json:"budget"`
	Spent    decimal.Decimal `json:"spent"`
	Amount   decimal.Decimal `json:"amount"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message"`
}

// Over reports whether spending exceeds a set budget.
func (s BudgetStatus) Over() bool {
	return s.Label == StatusOver
}

// EvaluateBudget labels spent against budget. A zero (or negative) budget is
// treated as unset.
func EvaluateBudget(budget, spent decimal.Decimal) BudgetStatus {
	s := BudgetStatus{
		Budget: budget,
		Spent:  spent,
		Amount: budget.Sub(spent).Abs(),
	}
	if !budget.IsPositive() {
		s.Label = StatusUnset
		s.Message = "No budget set."
		return s
	}

	s.Progress = min(spent.Div(budget).Mul(decimal.NewFromInt(100)).InexactFloat64(), MaxProgress)
	if spent.LessThanOrEqual(budget) {
		s.Label = StatusOnTrack
		s.Message = core.FormatAmount(s.Amount) + " remaining"
	} else {
		s.Label = StatusOver
		s.Message = "Over by " + core.FormatAmount(s.Amount)
	}
	return s
}
