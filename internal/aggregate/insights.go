package aggregate

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// NoInsights is shown when there are no transactions at all.
const NoInsights = "Add some transactions to see insights."

// Insights are the short observations shown next to the charts.
type Insights struct {
	Empty     bool                 `json:"empty"`
	Top       *core.CategoryAmount `json:"top,omitempty"`
	AvgPerDay decimal.Decimal      `json:"avg_per_day"`
	MoMChange *float64             `json:"mom_change,omitempty"`
	Largest   *core.Transaction    `json:"largest,omitempty"`
	ThisMonth decimal.Decimal      `json:"this_month"`
	LastMonth decimal.Decimal      `json:"last_month"`
}

// ComputeInsights derives insights from txs relative to today.
func ComputeInsights(txs []core.Transaction, today core.Date) Insights {
	if len(txs) == 0 {
		return Insights{Empty: true, AvgPerDay: decimal.Zero, ThisMonth: decimal.Zero, LastMonth: decimal.Zero}
	}

	expenses := Expenses(txs)
	in := Insights{
		AvgPerDay: averagePerDay(expenses),
		ThisMonth: MonthExpense(txs, today, 0),
		LastMonth: MonthExpense(txs, today, 1),
	}

	if top, ok := ExpenseRollup(txs).Top(); ok {
		in.Top = &top
	}
	if pct, ok := MonthOverMonth(in.ThisMonth, in.LastMonth); ok {
		in.MoMChange = &pct
	}
	for i := range expenses {
		if in.Largest == nil || expenses[i].Amount.GreaterThan(in.Largest.Amount) {
			largest := expenses[i]
			in.Largest = &largest
		}
	}
	return in
}

// averagePerDay divides total spend by the number of distinct days with any
// expense, treating no days as one.
func averagePerDay(expenses []core.Transaction) decimal.Decimal {
	days := make(map[string]struct{})
	total := decimal.Zero
	for _, tx := range expenses {
		days[tx.Date.String()] = struct{}{}
		total = total.Add(tx.Amount)
	}
	n := max(len(days), 1)
	return total.Div(decimal.NewFromInt(int64(n)))
}

// Lines renders the insights as sentences in display order.
func (in Insights) Lines() []string {
	if in.Empty {
		return []string{NoInsights}
	}
	var out []string
	if in.Top != nil {
		out = append(out, fmt.Sprintf("Top spending: %s (%s).", in.Top.Category, core.FormatAmount(in.Top.Total)))
	}
	out = append(out, fmt.Sprintf("Avg spend per day: %s.", core.FormatAmount(in.AvgPerDay)))
	if in.MoMChange != nil {
		arrow := "↑"
		if *in.MoMChange < 0 {
			arrow = "↓"
		}
		out = append(out, fmt.Sprintf("You spent %s%.1f%% vs last month.", arrow, math.Abs(*in.MoMChange)))
	}
	if in.Largest != nil {
		out = append(out, fmt.Sprintf("Largest transaction: %s on %s.", core.FormatAmount(in.Largest.Amount), in.Largest.Category))
	}
	return out
}
