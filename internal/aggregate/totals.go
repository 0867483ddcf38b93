package aggregate

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// Totals is the income/expense summary of a set of transactions.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// ComputeTotals sums income and expense; Balance is Income - Expense.
func ComputeTotals(txs []core.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero, Count: len(txs)}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// Rollup maps category to summed amount. Categories keep the order in which
// they were first seen.
type Rollup struct {
	order  []string
	totals map[string]decimal.Decimal
}

// RollupByCategory groups txs by category regardless of type. Callers that
// want spending only pass Expenses(txs), or use ExpenseRollup.
func RollupByCategory(txs []core.Transaction) *Rollup {
	r := &Rollup{totals: make(map[string]decimal.Decimal)}
	for _, tx := range txs {
		r.Add(tx.Category, tx.Amount)
	}
	return r
}

// ExpenseRollup is RollupByCategory over the expenses of txs.
func ExpenseRollup(txs []core.Transaction) *Rollup {
	return RollupByCategory(Expenses(txs))
}

// Add accumulates amount under category.
func (r *Rollup) Add(category string, amount decimal.Decimal) {
	if r.totals == nil {
		r.totals = make(map[string]decimal.Decimal)
	}
	cur, ok := r.totals[category]
	if !ok {
		r.order = append(r.order, category)
		cur = decimal.Zero
	}
	r.totals[category] = cur.Add(amount)
}

func (r *Rollup) Len() int {
	return len(r.order)
}

// Get returns the total of one category, zero when absent.
func (r *Rollup) Get(category string) decimal.Decimal {
	if v, ok := r.totals[category]; ok {
		return v
	}
	return decimal.Zero
}

// Total is the sum over all categories.
func (r *Rollup) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.order {
		total = total.Add(r.totals[c])
	}
	return total
}

// Entries lists categories in insertion order.
func (r *Rollup) Entries() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, core.CategoryAmount{Category: c, Total: r.totals[c]})
	}
	return out
}

// Sorted lists categories by descending total. Ties keep insertion order.
func (r *Rollup) Sorted() []core.CategoryAmount {
	out := r.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}

// Top returns the category with the largest total.
func (r *Rollup) Top() (core.CategoryAmount, bool) {
	sorted := r.Sorted()
	if len(sorted) == 0 {
		return core.CategoryAmount{}, false
	}
	return sorted[0], true
}

// CategoryTotal is the rollup panel: total and count for one category or All.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// CategorySummary sums every transaction of category (any type). All or an
// empty category selects everything.
func CategorySummary(txs []core.Transaction, category string) CategoryTotal {
	if category == "" {
		category = All
	}
	out := CategoryTotal{Category: category, Total: decimal.Zero}
	for _, tx := range txs {
		if category != All && tx.Category != category {
			continue
		}
		out.Total = out.Total.Add(tx.Amount)
		out.Count++
	}
	return out
}

// Categories returns the distinct categories of txs sorted alphabetically.
func Categories(txs []core.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	out := make([]string, 0)
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	slices.Sort(out)
	return out
}
