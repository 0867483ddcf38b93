// Package state holds the client-side application state: the cached
// transaction list, the theme and the budget, persisted in a LocalStore and
// kept in sync with the REST API on a best-effort basis.
package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finset/internal/aggregate"
	"finset/internal/budget"
	"finset/internal/core"
	"finset/internal/log"
)

// API is the part of the REST client the controller needs.
type API interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// Result describes the outcome of a mutation. Synced is false when the
// server could not be reached and the change exists only locally.
type Result struct {
	Transaction core.Transaction `json:"transaction"`
	Synced      bool             `json:"synced"`
	Warning     string           `json:"warning,omitempty"`
}

// RefreshResult describes the outcome of Refresh.
type RefreshResult struct {
	Count   int    `json:"count"`
	Synced  bool   `json:"synced"`
	Warning string `json:"warning,omitempty"`
}

// Controller owns the client state. Views read from it and user actions go
// through it; nothing else holds the transaction list.
type Controller struct {
	mu     sync.Mutex
	store  *LocalStore
	api    API
	budget *budget.Manager
	txs    []core.Transaction
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l.WithComponent(log.ComponentState) }
}

// WithClock overrides time.Now, which decides "today" for dashboards and
// normalization.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator overrides the generator used for local-only transactions.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

// NewController builds a controller over store. api may be nil, in which
// case every mutation is local-only.
func NewController(store *LocalStore, api API, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		api:    api,
		txs:    []core.Transaction{},
		logger: log.Discard(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.budget = budget.NewManager(store, c.logger)
	return c
}

// Load replaces the in-memory list with the cached one so views can render
// before the server answers. It returns the number of cached transactions.
func (c *Controller) Load() int {
	txs, err := c.store.LoadTransactions(c.now())
	if err != nil {
		c.logger.Warn("Ignoring unreadable transaction cache", log.FieldError, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs = txs
	return len(txs)
}

// Refresh fetches the full list from the server. On success the list and
// the cache are replaced; on any failure the cached list is kept and the
// failure is reported as a warning.
func (c *Controller) Refresh(ctx context.Context) RefreshResult {
	if c.api == nil {
		return RefreshResult{Count: c.Len(), Warning: "offline: using cached data"}
	}

	txs, err := c.api.List(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Using cached data; server unavailable",
			log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return RefreshResult{Count: c.Len(), Warning: "using cached data: " + err.Error()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs = txs
	res := RefreshResult{Count: len(txs), Synced: true}
	if err := c.store.SaveTransactions(c.txs); err != nil {
		res.Warning = "could not update cache: " + err.Error()
	}
	return res
}

// Add validates in, tries the server and falls back to a local-only record
// when the server is unreachable or failing. Validation errors, local or
// remote, are returned before anything changes.
func (c *Controller) Add(ctx context.Context, in core.TransactionInput) (Result, error) {
	if strings.TrimSpace(in.Category) == "" {
		in.Category = core.DefaultCategory
	}
	if strings.TrimSpace(in.Date) == "" {
		in.Date = core.DateOf(c.now()).String()
	}
	tx, err := core.ParseTransactionInput(in)
	if err != nil {
		return Result{}, err
	}

	res := Result{}
	if c.api == nil {
		res.Warning = "offline: saved locally"
	} else {
		saved, err := c.api.Create(ctx, tx.Input())
		switch {
		case err == nil:
			tx, res.Synced = saved, true
		case core.IsValidation(err):
			return Result{}, err
		default:
			c.logger.WarnContext(ctx, "Falling back to local add",
				log.FieldOperation, log.OpCreate, log.FieldError, err)
			res.Warning = "server unavailable: saved locally"
		}
	}
	if !res.Synced {
		tx.ID = c.newID()
		tx.CreatedAt = c.now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs = append([]core.Transaction{tx}, c.txs...)
	res.Transaction = tx
	c.persist(&res.Warning)
	return res, nil
}

// Delete removes id on the server and locally. The local copy is removed
// even when the server call fails. core.ErrNotFound is returned only when
// neither side knows the id.
func (c *Controller) Delete(ctx context.Context, id string) (Result, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Result{}, &core.ValidationError{Field: "id", Message: "id required"}
	}

	res := Result{}
	remoteMissing := false
	if c.api == nil {
		res.Warning = "offline: deleted locally"
	} else {
		err := c.api.Delete(ctx, id)
		switch {
		case err == nil:
			res.Synced = true
		case errors.Is(err, core.ErrNotFound):
			remoteMissing = true
			res.Warning = "transaction was not found on the server"
		default:
			c.logger.WarnContext(ctx, "Server delete failed, removing locally",
				log.FieldOperation, log.OpDelete, log.FieldTransactionID, id, log.FieldError, err)
			res.Warning = "server unavailable: deleted locally"
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := slices.IndexFunc(c.txs, func(tx core.Transaction) bool { return tx.ID == id })
	if idx < 0 {
		if res.Synced {
			return res, nil
		}
		if remoteMissing || c.api == nil {
			return Result{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		return res, nil
	}
	res.Transaction = c.txs[idx]
	c.txs = slices.Delete(slices.Clone(c.txs), idx, idx+1)
	c.persist(&res.Warning)
	return res, nil
}

// persist writes the list to the cache; failures become warnings. Callers
// hold the lock.
func (c *Controller) persist(warning *string) {
	if err := c.store.SaveTransactions(c.txs); err != nil {
		c.logger.Error("Failed to persist transactions", log.FieldError, err)
		msg := "could not save locally: " + err.Error()
		if *warning != "" {
			msg = *warning + "; " + msg
		}
		*warning = msg
	}
}

// Transactions returns a copy of the current list, newest first as stored.
func (c *Controller) Transactions() []core.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.txs)
}

// Filtered returns the transactions matching f.
func (c *Controller) Filtered(f aggregate.Filter) []core.Transaction {
	return aggregate.Apply(c.Transactions(), f)
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.txs)
}

// Dashboard derives every view aggregate from the current list.
func (c *Controller) Dashboard(f aggregate.Filter) aggregate.Dashboard {
	return aggregate.Build(c.Transactions(), f, c.budget.Budget().Total, c.Today())
}

// Today is the current calendar date according to the controller clock.
func (c *Controller) Today() core.Date {
	return core.DateOf(c.now())
}

func (c *Controller) Budget() *budget.Manager {
	return c.budget
}

func (c *Controller) Theme() string {
	return c.store.Theme()
}

func (c *Controller) SetTheme(theme string) error {
	return c.store.SetTheme(theme)
}

// ToggleTheme switches between light and dark and returns the new theme.
func (c *Controller) ToggleTheme() (string, error) {
	next := ThemeDark
	if c.Theme() == ThemeDark {
		next = ThemeLight
	}
	return next, c.SetTheme(next)
}
