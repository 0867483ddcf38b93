package aggregate

import (
	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// Dashboard is everything the views need for one render.
type Dashboard struct {
	Filter     Filter                `json:"filter"`
	Totals     Totals                `json:"totals"`
	Rollup     []core.CategoryAmount `json:"rollup"`
	Trailing   []DayAmount           `json:"trailing"`
	Month      []DayAmount           `json:"month"`
	Insights   Insights              `json:"insights"`
	Lines      []string              `json:"insight_lines"`
	Budget     BudgetStatus          `json:"budget"`
	Categories []string              `json:"categories"`
}

// Build filters txs once and derives every aggregate from the result.
// Categories lists the categories of the unfiltered set so filter menus
// keep offering every choice.
func Build(txs []core.Transaction, f Filter, budget decimal.Decimal, today core.Date) Dashboard {
	filtered := Apply(txs, f)
	totals := ComputeTotals(filtered)
	insights := ComputeInsights(filtered, today)

	return Dashboard{
		Filter:     f,
		Totals:     totals,
		Rollup:     ExpenseRollup(filtered).Entries(),
		Trailing:   DailyExpenses(filtered, TrailingDays(today, TrailingWindow)),
		Month:      DailyExpenses(filtered, MonthDays(today, 0)),
		Insights:   insights,
		Lines:      insights.Lines(),
		Budget:     EvaluateBudget(budget, totals.Expense),
		Categories: Categories(txs),
	}
}
