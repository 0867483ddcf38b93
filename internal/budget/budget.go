// Package budget manages the monthly budget: a single total plus an optional
// checklist of recurring line items that can be marked paid. Items are
// informational and are never validated against the total.
package budget

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"finset/internal/aggregate"
	"finset/internal/core"
	"finset/internal/log"
)

var (
	ErrNegativeAmount = errors.New("budget amounts cannot be negative")
	ErrMissingName    = errors.New("budget item name is required")
	ErrNoSuchItem     = errors.New("budget item does not exist")
)

type Item struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
}

type Budget struct {
	Total decimal.Decimal `json:"total"`
	Items []Item          `json:"items"`
}

// Summary totals the item checklist.
type Summary struct {
	Count     int             `json:"count"`
	PaidCount int             `json:"paid_count"`
	Items     decimal.Decimal `json:"items"`
	Paid      decimal.Decimal `json:"paid"`
	Unpaid    decimal.Decimal `json:"unpaid"`
}

// Storage persists the budget. The total and the items are stored under
// separate keys and saved independently.
type Storage interface {
	LoadBudget() (Budget, error)
	SaveTotal(total decimal.Decimal) error
	SaveItems(items []Item) error
}

// Manager owns the budget and writes every edit through to Storage.
type Manager struct {
	mu     sync.Mutex
	store  Storage
	budget Budget
	logger *log.Logger
}

// NewManager loads the stored budget. Load errors are logged; whatever the
// storage could still read (zero values otherwise) becomes the budget.
func NewManager(store Storage, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	m := &Manager{store: store, logger: logger.WithComponent(log.ComponentBudget)}

	b, err := store.LoadBudget()
	if err != nil {
		m.logger.Warn("Failed to load budget, using defaults", log.FieldError, err)
	}
	if b.Total.IsNegative() {
		b.Total = decimal.Zero
	}
	m.budget = b
	return m
}

// Budget returns a copy of the current budget.
func (m *Manager) Budget() Budget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budget.clone()
}

func (b Budget) clone() Budget {
	items := make([]Item, len(b.Items))
	copy(items, b.Items)
	return Budget{Total: b.Total, Items: items}
}

// SetTotal replaces the monthly budget. Zero clears it.
func (m *Manager) SetTotal(total decimal.Decimal) error {
	if total.IsNegative() {
		return ErrNegativeAmount
	}
	total = core.RoundAmount(total)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SaveTotal(total); err != nil {
		return fmt.Errorf("save budget total: %w", err)
	}
	m.budget.Total = total
	m.logger.Info("Budget updated", log.FieldAmount, core.FormatAmount(total))
	return nil
}

// AddItem appends an unpaid line item.
func (m *Manager) AddItem(name string, amount decimal.Decimal) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrMissingName
	}
	if amount.IsNegative() {
		return Item{}, ErrNegativeAmount
	}
	item := Item{Name: name, Amount: core.RoundAmount(amount)}

	m.mu.Lock()
	defer m.mu.Unlock()
	items := append(m.budget.clone().Items, item)
	if err := m.save(items); err != nil {
		return Item{}, err
	}
	return item, nil
}

// RemoveItem deletes the item at index i.
func (m *Manager) RemoveItem(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.budget.Items) {
		return fmt.Errorf("%w: %d", ErrNoSuchItem, i)
	}
	items := m.budget.clone().Items
	items = append(items[:i], items[i+1:]...)
	return m.save(items)
}

// TogglePaid flips the paid flag of the item at index i and returns it.
func (m *Manager) TogglePaid(i int) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.budget.Items) {
		return Item{}, fmt.Errorf("%w: %d", ErrNoSuchItem, i)
	}
	items := m.budget.clone().Items
	items[i].Paid = !items[i].Paid
	if err := m.save(items); err != nil {
		return Item{}, err
	}
	return items[i], nil
}

// save persists items and only then makes them current.
func (m *Manager) save(items []Item) error {
	if err := m.store.SaveItems(items); err != nil {
		return fmt.Errorf("save budget items: %w", err)
	}
	m.budget.Items = items
	return nil
}

// Status evaluates spent against the current total.
func (m *Manager) Status(spent decimal.Decimal) aggregate.BudgetStatus {
	return aggregate.EvaluateBudget(m.Budget().Total, spent)
}

// Summary totals the item checklist.
func (m *Manager) Summary() Summary {
	b := m.Budget()
	s := Summary{Count: len(b.Items), Items: decimal.Zero, Paid: decimal.Zero, Unpaid: decimal.Zero}
	for _, it := range b.Items {
		s.Items = s.Items.Add(it.Amount)
		if it.Paid {
			s.Paid = s.Paid.Add(it.Amount)
			s.PaidCount++
		} else {
			s.Unpaid = s.Unpaid.Add(it.Amount)
		}
	}
	return s
}
