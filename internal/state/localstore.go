package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finset/internal/budget"
	"finset/internal/core"
)

// Storage keys. Each one is read independently and falls back to its
// default when missing or unreadable.
const (
	KeyTransactions = "et-transactions-v3"
	KeyTheme        = "et-theme"
	KeyBudget       = "et-budget"
	KeyBudgetItems  = "et-budget-items"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// LocalStore is a small string key/value store kept in one JSON file. Every
// Set rewrites the file atomically.
type LocalStore struct {
	mu       sync.RWMutex
	filename string
	values   map[string]string
}

// OpenLocalStore reads filename. A missing file gives an empty store; a
// corrupt one gives an empty store and an error describing the problem, so
// callers can warn and carry on.
func OpenLocalStore(filename string) (*LocalStore, error) {
	s := &LocalStore{filename: filename, values: make(map[string]string)}

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read local store: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		s.values = make(map[string]string)
		return s, fmt.Errorf("parse local store %s: %w", filename, err)
	}
	return s, nil
}

// NewMemoryStore returns a store that is never written to disk.
func NewMemoryStore() *LocalStore {
	return &LocalStore{values: make(map[string]string)}
}

func (s *LocalStore) Path() string {
	return s.filename
}

func (s *LocalStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys lists the stored keys in order.
func (s *LocalStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *LocalStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *LocalStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.flush(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// flush writes the whole map to a temp file and renames it into place.
// Callers hold the write lock.
func (s *LocalStore) flush() error {
	if s.filename == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".finset-state-*")
	if err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write local store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filename); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	return nil
}

// LoadTransactions decodes the cached list and normalizes every record. A
// missing or corrupt value yields an empty list.
func (s *LocalStore) LoadTransactions(now time.Time) ([]core.Transaction, error) {
	raw, ok := s.Get(KeyTransactions)
	if !ok || raw == "" {
		return []core.Transaction{}, nil
	}
	var recs []map[string]any
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return []core.Transaction{}, fmt.Errorf("decode cached transactions: %w", err)
	}
	return core.NormalizeAll(recs, core.DateOf(now)), nil
}

func (s *LocalStore) SaveTransactions(txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return err
	}
	return s.Set(KeyTransactions, string(data))
}

// Theme returns the saved theme, light when unset or unknown.
func (s *LocalStore) Theme() string {
	if v, ok := s.Get(KeyTheme); ok && v == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (s *LocalStore) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.Set(KeyTheme, theme)
}

// LoadBudget reads the total and the items independently. An unreadable
// total counts as zero and unreadable items as none; the first problem is
// still reported.
func (s *LocalStore) LoadBudget() (budget.Budget, error) {
	var (
		b        = budget.Budget{Total: decimal.Zero}
		firstErr error
	)
	if raw, ok := s.Get(KeyBudget); ok && strings.TrimSpace(raw) != "" {
		total, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || total.IsNegative() {
			firstErr = fmt.Errorf("invalid cached budget %q", raw)
		} else {
			b.Total = total
		}
	}
	if raw, ok := s.Get(KeyBudgetItems); ok && raw != "" {
		var items []budget.Item
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decode cached budget items: %w", err)
			}
		} else {
			b.Items = items
		}
	}
	return b, firstErr
}

func (s *LocalStore) SaveTotal(total decimal.Decimal) error {
	return s.Set(KeyBudget, total.String())
}

func (s *LocalStore) SaveItems(items []budget.Item) error {
	if items == nil {
		items = []budget.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.Set(KeyBudgetItems, string(data))
}
