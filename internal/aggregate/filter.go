// Package aggregate derives totals, rollups, time series, insights and
// budget status from a list of transactions. Every function is pure: the
// same input and the same reference date always give the same output.
package aggregate

import (
	"strings"

	"finset/internal/core"
)

// All is the filter value that disables the type or category restriction.
const All = "all"

// Filter selects the transactions the dashboard works on. Zero values
// disable the corresponding restriction; Start and End are inclusive.
type Filter struct {
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Start    core.Date `json:"start"`
	End      core.Date `json:"end"`
	Search   string    `json:"search"`
}

// Match reports whether tx passes every restriction of f.
func (f Filter) Match(tx core.Transaction) bool {
	if f.Type != "" && f.Type != All && string(tx.Type) != f.Type {
		return false
	}
	if f.Category != "" && f.Category != All && tx.Category != f.Category {
		return false
	}
	if !f.Start.IsZero() && tx.Date.Before(f.Start.Time) {
		return false
	}
	if !f.End.IsZero() && tx.Date.After(f.End.Time) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		haystack := strings.ToLower(tx.Category + " " + tx.Note)
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// IsZero reports whether the filter lets everything through.
func (f Filter) IsZero() bool {
	return (f.Type == "" || f.Type == All) &&
		(f.Category == "" || f.Category == All) &&
		f.Start.IsZero() && f.End.IsZero() &&
		strings.TrimSpace(f.Search) == ""
}

// Apply returns the transactions matching f, preserving order.
func Apply(txs []core.Transaction, f Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Expenses returns only the expense transactions, preserving order.
func Expenses(txs []core.Transaction) []core.Transaction {
	return Apply(txs, Filter{Type: string(core.Expense)})
}
