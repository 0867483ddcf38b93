// Package memory is an in-process transaction store used by tests and by
// DATA_BACKEND=memory.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"finset/internal/core"
	"finset/internal/storage"
)

var _ storage.TransactionStore = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items map[string]core.Transaction
	now   func() time.Time
}

func New() *Store {
	return &Store{items: map[string]core.Transaction{}, now: time.Now}
}

// NewFromFile seeds the store from a JSON array of transaction records.
// Records are normalized; those without an id are dropped. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var recs []map[string]any
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	today := core.DateOf(s.now())
	for _, tx := range core.NormalizeAll(recs, today) {
		if tx.ID == "" {
			continue
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = s.now().UTC()
		}
		s.items[tx.ID] = tx
	}
	return s, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		out = append(out, tx)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[tx.ID]; ok {
		return core.Transaction{}, fmt.Errorf("create transaction %s: %w", tx.ID, storage.ErrDuplicateID)
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	s.items[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) BulkInsert(_ context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, tx := range txs {
		if _, ok := s.items[tx.ID]; ok {
			continue
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		s.items[tx.ID] = tx
		inserted++
	}
	return inserted, nil
}

func (s *Store) Stats(_ context.Context) (core.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st core.Stats
	for _, tx := range s.items {
		if tx.Type == core.Income {
			st.Income = st.Income.Add(tx.Amount)
		} else {
			st.Expense = st.Expense.Add(tx.Amount)
		}
		st.Count++
	}
	st.Balance = st.Income.Sub(st.Expense)
	return st, nil
}

func (s *Store) MonthlyFlow(_ context.Context, since core.Date) ([]core.MonthFlow, error) {
	s.mu.Lock()
	byMonth := map[string]*core.MonthFlow{}
	for _, tx := range s.items {
		if tx.Date.Compare(since) < 0 {
			continue
		}
		key := tx.Date.MonthKey()
		m, ok := byMonth[key]
		if !ok {
			m = &core.MonthFlow{Month: key}
			byMonth[key] = m
		}
		if tx.Type == core.Income {
			m.Income = m.Income.Add(tx.Amount)
		} else {
			m.Expense = m.Expense.Add(tx.Amount)
		}
	}
	s.mu.Unlock()

	out := make([]core.MonthFlow, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b core.MonthFlow) int { return cmp.Compare(a.Month, b.Month) })
	return out, nil
}

func (s *Store) CategoryBreakdown(_ context.Context) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	totals := map[string]core.CategoryAmount{}
	for _, tx := range s.items {
		if !tx.IsExpense() {
			continue
		}
		c := totals[tx.Category]
		c.Category = tx.Category
		c.Total = c.Total.Add(tx.Amount)
		totals[tx.Category] = c
	}
	s.mu.Unlock()

	out := make([]core.CategoryAmount, 0, len(totals))
	for _, c := range totals {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out, nil
}

func (s *Store) Now(_ context.Context) (time.Time, error) {
	return s.now(), nil
}

func (s *Store) Close() error { return nil }
