// Package storage persists transactions in a relational database.
package storage

import (
	"context"
	"time"

	"finset/internal/core"
)

// TransactionStore is the persistence port used by the service layer. Every
// implementation returns core.ErrNotFound (possibly wrapped) for unknown ids.
type TransactionStore interface {
	// ListTransactions returns every transaction, newest date first and,
	// within a date, newest created_at first.
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	// CreateTransaction stores tx as given; ID and CreatedAt must be set.
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	// BulkInsert stores txs in one unit of work, skipping ids that already
	// exist, and returns how many rows were inserted.
	BulkInsert(ctx context.Context, txs []core.Transaction) (int, error)

	Stats(ctx context.Context) (core.Stats, error)
	// MonthlyFlow returns income and expense per month for dates >= since,
	// oldest month first. Months without transactions are absent.
	MonthlyFlow(ctx context.Context, since core.Date) ([]core.MonthFlow, error)
	// CategoryBreakdown returns expense totals per category, largest first.
	CategoryBreakdown(ctx context.Context) ([]core.CategoryAmount, error)
	// Now returns the database clock; it doubles as a connectivity check.
	Now(ctx context.Context) (time.Time, error)

	Close() error
}
