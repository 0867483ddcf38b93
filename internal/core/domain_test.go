package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseTransactionInput(t *testing.T) {
	good := TransactionInput{Type: "expense", Amount: "1200", Category: "Food", Date: "2024-01-10", Note: " lunch "}
	tx, err := ParseTransactionInput(good)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Type != Expense || !tx.Amount.Equal(decimal.NewFromInt(1200)) || tx.Category != "Food" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Date.String() != "2024-01-10" {
		t.Fatalf("date = %q", tx.Date.String())
	}
	if tx.Note != "lunch" {
		t.Fatalf("note not trimmed: %q", tx.Note)
	}
	if tx.Method != DefaultMethod {
		t.Fatalf("method = %q, want %q", tx.Method, DefaultMethod)
	}

	maxIn := TransactionInput{Type: "income", Amount: "9999999999.99", Category: "c", Date: "2024-01-01"}
	if tx, err := ParseTransactionInput(maxIn); err != nil || !tx.Amount.Equal(MaxAmount) {
		t.Fatalf("maximum amount: got %s, %v", tx.Amount, err)
	}

	cases := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"bad type", TransactionInput{Type: "transfer", Amount: "1", Category: "c", Date: "2024-01-01"}, ErrInvalidType},
		{"type is case sensitive", TransactionInput{Type: "Income", Amount: "1", Category: "c", Date: "2024-01-01"}, ErrInvalidType},
		{"zero amount", TransactionInput{Type: "income", Amount: "0", Category: "c", Date: "2024-01-01"}, ErrInvalidAmount},
		{"negative amount", TransactionInput{Type: "income", Amount: "-5", Category: "c", Date: "2024-01-01"}, ErrInvalidAmount},
		{"above maximum", TransactionInput{Type: "income", Amount: "10000000000", Category: "c", Date: "2024-01-01"}, ErrAmountTooLarge},
		{"rounds above maximum", TransactionInput{Type: "income", Amount: "9999999999.995", Category: "c", Date: "2024-01-01"}, ErrAmountTooLarge},
		{"past cents range", TransactionInput{Type: "expense", Amount: "184467440737095516.17", Category: "c", Date: "2024-01-01"}, ErrAmountTooLarge},
		{"non numeric amount", TransactionInput{Type: "income", Amount: "abc", Category: "c", Date: "2024-01-01"}, ErrInvalidAmount},
		{"missing category", TransactionInput{Type: "income", Amount: "1", Category: "  ", Date: "2024-01-01"}, ErrMissingFields},
		{"missing date", TransactionInput{Type: "income", Amount: "1", Category: "c"}, ErrMissingFields},
		{"bad date", TransactionInput{Type: "income", Amount: "1", Category: "c", Date: "10/01/2024"}, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTransactionInput(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a validation error, got %T", err)
			}
		})
	}
}

func TestParseTransactionInputRoundsAmount(t *testing.T) {
	tx, err := ParseTransactionInput(TransactionInput{Type: "income", Amount: "10.005", Category: "Salary", Date: "2024-01-05"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := FormatAmount(tx.Amount); got != "10.01" {
		t.Fatalf("amount = %s, want 10.01", got)
	}
}

func TestTxTypeSign(t *testing.T) {
	if Income.Sign() != 1 || Expense.Sign() != -1 {
		t.Fatalf("unexpected signs: %d %d", Income.Sign(), Expense.Sign())
	}
	if TxType("other").Valid() {
		t.Fatalf("unexpected valid type")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 2, 2)
	b, err := d.MarshalJSON()
	if err != nil || string(b) != `"2024-02-02"` {
		t.Fatalf("marshal = %s, %v", b, err)
	}

	var back Date
	if err := back.UnmarshalJSON([]byte(`"2024-02-02T00:00:00.000Z"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("got %s, want %s", back, d)
	}
}
