package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finset/internal/aggregate"
	"finset/internal/core"
)

var errOffline = errors.New("dial tcp: connection refused")

type fakeAPI struct {
	txs       []core.Transaction
	listErr   error
	createErr error
	deleteErr error
	nextID    int
}

func (f *fakeAPI) List(context.Context) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Transaction(nil), f.txs...), nil
}

func (f *fakeAPI) Create(_ context.Context, in core.TransactionInput) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	tx, err := core.ParseTransactionInput(in)
	if err != nil {
		return core.Transaction{}, err
	}
	f.nextID++
	tx.ID = fmt.Sprintf("srv-%d", f.nextID)
	tx.CreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.txs = append([]core.Transaction{tx}, f.txs...)
	return tx, nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, tx := range f.txs {
		if tx.ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func clock() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func newController(t *testing.T, api API) (*Controller, *LocalStore) {
	t.Helper()
	store, err := OpenLocalStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	ids := 0
	c := NewController(store, api,
		WithClock(clock),
		WithIDGenerator(func() string { ids++; return fmt.Sprintf("local-%d", ids) }),
	)
	return c, store
}

func expense(amount, category string) core.TransactionInput {
	return core.TransactionInput{Type: "expense", Amount: amount, Category: category, Date: "2024-03-10"}
}

func TestLocalStoreFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := OpenLocalStore(path)
	assert.Error(t, err)
	require.NotNil(t, store)
	assert.Empty(t, store.Keys())

	require.NoError(t, store.Set(KeyTransactions, "[broken"))
	require.NoError(t, store.Set(KeyBudget, "abc"))
	require.NoError(t, store.Set(KeyBudgetItems, `[{"name":"Rent","amount":100,"paid":true}]`))
	require.NoError(t, store.Set(KeyTheme, "neon"))

	txs, err := store.LoadTransactions(clock())
	assert.Error(t, err)
	assert.Empty(t, txs)

	b, err := store.LoadBudget()
	assert.Error(t, err, "bad total is reported")
	assert.True(t, b.Total.IsZero())
	require.Len(t, b.Items, 1, "items are read independently of the total")
	assert.True(t, b.Items[0].Paid)

	assert.Equal(t, ThemeLight, store.Theme())
	assert.Error(t, store.SetTheme("neon"))
}

func TestLocalStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store, err := OpenLocalStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SetTheme(ThemeDark))
	require.NoError(t, store.SaveTotal(decimal.NewFromInt(5000)))
	require.NoError(t, store.Remove("missing"))

	reopened, err := OpenLocalStore(path)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, reopened.Theme())
	b, err := reopened.LoadBudget()
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(decimal.NewFromInt(5000)))

	require.NoError(t, reopened.Remove(KeyTheme))
	assert.Equal(t, ThemeLight, reopened.Theme())
	assert.Equal(t, []string{KeyBudget}, reopened.Keys())
}

func TestLoadNormalizesCache(t *testing.T) {
	c, store := newController(t, nil)
	require.NoError(t, store.Set(KeyTransactions,
		`[{"id":1,"type":"expense","amount":"5","note":"bus","date":"2024-03-01T08:00:00Z"},{"amount":-2}]`))

	assert.Equal(t, 2, c.Load())
	txs := c.Transactions()
	assert.Equal(t, "1", txs[0].ID)
	assert.Equal(t, "bus", txs[0].Category)
	assert.Equal(t, core.DefaultCategory, txs[1].Category)
	assert.True(t, txs[1].Amount.IsZero())
	assert.Equal(t, "2024-03-15", txs[1].Date.String())
}

func TestRefresh(t *testing.T) {
	api := &fakeAPI{txs: []core.Transaction{
		{ID: "a", Type: core.Income, Amount: decimal.NewFromInt(10), Category: "Salary", Date: core.NewDate(2024, 3, 1)},
	}}
	c, store := newController(t, api)

	res := c.Refresh(context.Background())
	assert.True(t, res.Synced)
	assert.Equal(t, 1, res.Count)

	cached, err := store.LoadTransactions(clock())
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "a", cached[0].ID)

	api.listErr = errOffline
	api.txs = nil
	res = c.Refresh(context.Background())
	assert.False(t, res.Synced)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, 1, c.Len(), "cached list survives a failed refresh")
}

func TestAddSynced(t *testing.T) {
	api := &fakeAPI{}
	c, store := newController(t, api)

	res, err := c.Add(context.Background(), expense("1200", "Food"))
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "srv-1", res.Transaction.ID)

	cached, err := store.LoadTransactions(clock())
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "srv-1", cached[0].ID)
}

func TestAddFallsBackLocally(t *testing.T) {
	api := &fakeAPI{createErr: errOffline}
	c, _ := newController(t, api)

	_, err := c.Add(context.Background(), expense("10", "Food"))
	require.NoError(t, err)
	res, err := c.Add(context.Background(), core.TransactionInput{Type: "income", Amount: "5"})
	require.NoError(t, err)

	assert.False(t, res.Synced)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, "local-2", res.Transaction.ID)
	assert.Equal(t, core.DefaultCategory, res.Transaction.Category)
	assert.Equal(t, "2024-03-15", res.Transaction.Date.String())
	assert.False(t, res.Transaction.CreatedAt.IsZero())

	txs := c.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "local-2", txs[0].ID, "new transactions are prepended")
}

func TestAddValidationDoesNotMutate(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newController(t, api)

	for _, in := range []core.TransactionInput{
		expense("0", "Food"),
		expense("-3", "Food"),
		{Type: "transfer", Amount: "3", Category: "x", Date: "2024-03-01"},
	} {
		_, err := c.Add(context.Background(), in)
		assert.True(t, core.IsValidation(err), "input %+v", in)
	}

	api.createErr = core.ErrInvalidDate
	_, err := c.Add(context.Background(), expense("3", "Food"))
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	assert.Zero(t, c.Len())
	assert.Empty(t, api.txs)
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{}
	c, store := newController(t, api)
	first, err := c.Add(context.Background(), expense("1", "A"))
	require.NoError(t, err)
	second, err := c.Add(context.Background(), expense("2", "B"))
	require.NoError(t, err)

	res, err := c.Delete(context.Background(), first.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, res.Synced)

	txs := c.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, second.Transaction.ID, txs[0].ID)

	cached, err := store.LoadTransactions(clock())
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = c.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, c.Len())

	_, err = c.Delete(context.Background(), "")
	assert.True(t, core.IsValidation(err))
}

func TestDeleteFallsBackLocally(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newController(t, api)
	added, err := c.Add(context.Background(), expense("1", "A"))
	require.NoError(t, err)

	api.deleteErr = errOffline
	res, err := c.Delete(context.Background(), added.Transaction.ID)
	require.NoError(t, err)
	assert.False(t, res.Synced)
	assert.NotEmpty(t, res.Warning)
	assert.Zero(t, c.Len())
}

func TestDeleteLocalOnlyRecordNotOnServer(t *testing.T) {
	api := &fakeAPI{createErr: errOffline}
	c, _ := newController(t, api)
	added, err := c.Add(context.Background(), expense("1", "A"))
	require.NoError(t, err)

	api.createErr = nil
	res, err := c.Delete(context.Background(), added.Transaction.ID)
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "not found")
	assert.Zero(t, c.Len())
}

func TestOfflineController(t *testing.T) {
	c, _ := newController(t, nil)
	res := c.Refresh(context.Background())
	assert.False(t, res.Synced)

	added, err := c.Add(context.Background(), expense("3", "A"))
	require.NoError(t, err)
	assert.Equal(t, "local-1", added.Transaction.ID)

	_, err = c.Delete(context.Background(), added.Transaction.ID)
	require.NoError(t, err)
	_, err = c.Delete(context.Background(), added.Transaction.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDashboardAndBudget(t *testing.T) {
	c, store := newController(t, &fakeAPI{})
	for _, in := range []core.TransactionInput{
		{Type: "income", Amount: "8500", Category: "Salary", Date: "2024-01-05"},
		{Type: "expense", Amount: "1200", Category: "Food", Date: "2024-01-10"},
		{Type: "expense", Amount: "800", Category: "Cafe", Date: "2024-02-02"},
	} {
		_, err := c.Add(context.Background(), in)
		require.NoError(t, err)
	}
	require.NoError(t, c.Budget().SetTotal(decimal.NewFromInt(1500)))

	d := c.Dashboard(aggregate.Filter{Type: aggregate.All})
	assert.True(t, d.Totals.Balance.Equal(decimal.NewFromInt(6500)))
	assert.Equal(t, aggregate.StatusOver, d.Budget.Label)
	assert.Equal(t, "Over by 500.00", d.Budget.Message)
	assert.Len(t, d.Month, 31)

	reopened, err := OpenLocalStore(store.Path())
	require.NoError(t, err)
	b, err := reopened.LoadBudget()
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(decimal.NewFromInt(1500)))
}

func TestToggleTheme(t *testing.T) {
	c, _ := newController(t, nil)
	assert.Equal(t, ThemeLight, c.Theme())
	next, err := c.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, next)
	assert.Equal(t, ThemeDark, c.Theme())
}
