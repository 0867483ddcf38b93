// Package storetest holds behaviour tests shared by every TransactionStore
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finset/internal/core"
	"finset/internal/storage"
)

// Factory returns an empty store. The store is closed by the suite.
type Factory func(t *testing.T) storage.TransactionStore

func tx(id string, typ core.TxType, amount, category, date string, created time.Time) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:        id,
		Type:      typ,
		Amount:    decimal.RequireFromString(amount),
		Category:  category,
		Method:    core.DefaultMethod,
		Date:      d,
		CreatedAt: created,
	}
}

var base = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func seed() []core.Transaction {
	return []core.Transaction{
		tx("a", core.Income, "1000.00", "Salary", "2024-05-01", base),
		tx("b", core.Expense, "40.00", "Food", "2024-05-03", base),
		tx("c", core.Expense, "10.50", "Food", "2024-05-03", base.Add(time.Minute)),
		tx("d", core.Expense, "60.00", "Rent", "2024-04-20", base),
	}
}

func mustCreate(t *testing.T, s storage.TransactionStore, txs ...core.Transaction) {
	t.Helper()
	for _, x := range txs {
		if _, err := s.CreateTransaction(context.Background(), x); err != nil {
			t.Fatalf("create %s: %v", x.ID, err)
		}
	}
}

// Run exercises the TransactionStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) storage.TransactionStore {
		s := newStore(t)
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("EmptyList", func(t *testing.T) {
		s := open(t)
		got, err := s.ListTransactions(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("ListOrder", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, seed()...)

		got, err := s.ListTransactions(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"c", "b", "a", "d"}
		if len(got) != len(want) {
			t.Fatalf("expected %d rows, got %d", len(want), len(got))
		}
		for i, id := range want {
			if got[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
			}
		}
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		s := open(t)
		in := tx("x", core.Expense, "12.34", "Food", "2024-05-03", base)
		in.Note = "lunch"
		saved, err := s.CreateTransaction(ctx, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.GetTransaction(ctx, "x")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		for _, v := range []core.Transaction{saved, got} {
			if !v.Amount.Equal(in.Amount) {
				t.Errorf("amount: expected %s, got %s", in.Amount, v.Amount)
			}
			if v.Date.String() != "2024-05-03" || v.Category != "Food" || v.Note != "lunch" || v.Type != core.Expense {
				t.Errorf("unexpected record %+v", v)
			}
			if !v.CreatedAt.Equal(base) {
				t.Errorf("created_at: expected %s, got %s", base, v.CreatedAt)
			}
		}
	})

	t.Run("LargestAmount", func(t *testing.T) {
		s := open(t)
		in := tx("max", core.Income, "9999999999.99", "Bonus", "2024-05-03", base)
		if _, err := s.CreateTransaction(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.GetTransaction(ctx, "max")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Amount.Equal(core.MaxAmount) {
			t.Errorf("amount: expected %s, got %s", core.MaxAmount, got.Amount)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s := open(t)
		_, err := s.GetTransaction(ctx, "missing")
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, seed()...)

		if err := s.DeleteTransaction(ctx, "b"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.DeleteTransaction(ctx, "b"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
		got, _ := s.ListTransactions(ctx)
		if len(got) != 3 {
			t.Fatalf("expected 3 rows after delete, got %d", len(got))
		}
		for _, v := range got {
			if v.ID == "b" {
				t.Fatalf("deleted row still listed")
			}
		}
	})

	t.Run("BulkInsertSkipsExisting", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, seed()[0])

		n, err := s.BulkInsert(ctx, seed())
		if err != nil {
			t.Fatalf("bulk insert: %v", err)
		}
		if n != 3 {
			t.Fatalf("expected 3 inserted, got %d", n)
		}
		n, err = s.BulkInsert(ctx, nil)
		if err != nil || n != 0 {
			t.Fatalf("empty bulk insert: n=%d err=%v", n, err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, seed()...)

		st, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Count != 4 {
			t.Errorf("count: expected 4, got %d", st.Count)
		}
		if st.Income.StringFixed(2) != "1000.00" || st.Expense.StringFixed(2) != "110.50" {
			t.Errorf("unexpected totals income=%s expense=%s", st.Income, st.Expense)
		}
		if !st.Balance.Equal(st.Income.Sub(st.Expense)) {
			t.Errorf("balance %s != income - expense", st.Balance)
		}
	})

	t.Run("MonthlyFlow", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, seed()...)

		flow, err := s.MonthlyFlow(ctx, core.NewDate(2024, 4, 1))
		if err != nil {
			t.Fatalf("monthly flow: %v", err)
		}
		if len(flow) != 2 || flow[0].Month != "2024-04" || flow[1].Month != "2024-05" {
			t.Fatalf("unexpected months %+v", flow)
		}
		if flow[0].Expense.StringFixed(2) != "60.00" || !flow[0].Income.IsZero() {
			t.Errorf("april: %+v", flow[0])
		}
		if flow[1].Income.StringFixed(2) != "1000.00" || flow[1].Expense.StringFixed(2) != "50.50" {
			t.Errorf("may: %+v", flow[1])
		}

		flow, _ = s.MonthlyFlow(ctx, core.NewDate(2024, 5, 2))
		if len(flow) != 1 || flow[0].Income.Sign() != 0 {
			t.Errorf("since filter not applied: %+v", flow)
		}
	})

	t.Run("CategoryBreakdown", func(t *testing.T) {
		s := open(t)
		mustCreate(t, s, seed()...)

		got, err := s.CategoryBreakdown(ctx)
		if err != nil {
			t.Fatalf("breakdown: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 categories, got %+v", got)
		}
		if got[0].Category != "Rent" || got[0].Total.StringFixed(2) != "60.00" {
			t.Errorf("first: %+v", got[0])
		}
		if got[1].Category != "Food" || got[1].Total.StringFixed(2) != "50.50" {
			t.Errorf("second: %+v", got[1])
		}
	})

	t.Run("Now", func(t *testing.T) {
		s := open(t)
		now, err := s.Now(ctx)
		if err != nil {
			t.Fatalf("now: %v", err)
		}
		if now.IsZero() {
			t.Fatalf("expected a database time")
		}
	})
}
