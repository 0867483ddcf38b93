package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// TrailingWindow is the number of days shown by the line chart.
const TrailingWindow = 30

// DayAmount is the expense total of one calendar day.
type DayAmount struct {
	Date  core.Date       `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// TrailingDays returns the n days ending at today, oldest first.
func TrailingDays(today core.Date, n int) []core.Date {
	if n <= 0 {
		return nil
	}
	out := make([]core.Date, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, today.AddDays(-i))
	}
	return out
}

// MonthDays returns every day of the calendar month offset months before
// today's month (0 is the current month).
func MonthDays(today core.Date, offset int) []core.Date {
	first := time.Date(today.Year(), today.Month()-time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	out := make([]core.Date, 0, last)
	for d := 1; d <= last; d++ {
		out = append(out, core.NewDate(first.Year(), int(first.Month()), d))
	}
	return out
}

// DailyExpenses sums expenses per day in days. Days without expenses are
// present with a zero total.
func DailyExpenses(txs []core.Transaction, days []core.Date) []DayAmount {
	byDay := make(map[string]decimal.Decimal, len(days))
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		key := tx.Date.String()
		byDay[key] = byDay[key].Add(tx.Amount)
	}
	out := make([]DayAmount, 0, len(days))
	for _, d := range days {
		total, ok := byDay[d.String()]
		if !ok {
			total = decimal.Zero
		}
		out = append(out, DayAmount{Date: d, Total: total})
	}
	return out
}

// Values extracts the totals of a series.
func Values(series []DayAmount) []decimal.Decimal {
	out := make([]decimal.Decimal, len(series))
	for i, s := range series {
		out[i] = s.Total
	}
	return out
}

// MonthExpense is the expense total of the month offset months before today.
func MonthExpense(txs []core.Transaction, today core.Date, offset int) decimal.Decimal {
	total := decimal.Zero
	for _, d := range DailyExpenses(txs, MonthDays(today, offset)) {
		total = total.Add(d.Total)
	}
	return total
}

// MonthOverMonth returns the percentage change from previous to current.
// The change is undefined when previous is zero and ok is false.
func MonthOverMonth(current, previous decimal.Decimal) (pct float64, ok bool) {
	if previous.IsZero() {
		return 0, false
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).InexactFloat64(), true
}

// FillMonths returns one row per month starting at since's month, using rows
// where present and zero totals for gaps.
func FillMonths(since core.Date, months int, rows []core.MonthFlow) []core.MonthFlow {
	byMonth := make(map[string]core.MonthFlow, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r
	}
	start := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.MonthFlow, 0, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		row, ok := byMonth[key]
		if !ok {
			row = core.MonthFlow{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
		}
		out = append(out, row)
	}
	return out
}
