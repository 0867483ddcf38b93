package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finset/internal/core"

	_ "modernc.org/sqlite"
)

// createdAtLayout is fixed width so that text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

var _ TransactionStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func toRow(tx core.Transaction) (TransactionRow, error) {
	cents, err := core.ToCents(tx.Amount)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("transaction %s amount %s: %w", tx.ID, tx.Amount, err)
	}
	return TransactionRow{
		ID:          tx.ID,
		Type:        string(tx.Type),
		AmountCents: cents,
		Category:    tx.Category,
		Method:      tx.Method,
		Date:        tx.Date.String(),
		Note:        tx.Note,
		CreatedAt:   tx.CreatedAt.UTC().Format(createdAtLayout),
	}, nil
}

func fromRow(r TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad date %q: %w", r.ID, r.Date, err)
	}
	created, err := time.Parse(createdAtLayout, r.CreatedAt)
	if err != nil {
		// rows written by other tools may use plain RFC 3339
		created, err = time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s: bad created_at %q: %w", r.ID, r.CreatedAt, err)
		}
	}
	return core.Transaction{
		ID:        r.ID,
		Type:      core.TxType(r.Type),
		Amount:    core.FromCents(r.AmountCents),
		Category:  r.Category,
		Method:    r.Method,
		Date:      date,
		Note:      r.Note,
		CreatedAt: created,
	}, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return fromRow(row)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row, err := toRow(tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if err := r.queries.CreateTransaction(ctx, row); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"type", row.Type,
		"amount_cents", row.AmountCents,
		"category", row.Category,
		"date", row.Date)

	return fromRow(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) BulkInsert(ctx context.Context, txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	q := r.queries.WithTx(dbTx)
	inserted := 0
	for _, tx := range txs {
		row, err := toRow(tx)
		if err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
		n, err := q.InsertTransactionIgnore(ctx, row)
		if err != nil {
			return 0, fmt.Errorf("import transaction %s: %w", tx.ID, err)
		}
		inserted += int(n)
	}
	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported into SQLite", "inserted", inserted, "total", len(txs))
	return inserted, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (core.Stats, error) {
	row, err := r.queries.GetStats(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	income, expense := core.FromCents(row.IncomeCents), core.FromCents(row.ExpenseCents)
	return core.Stats{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
		Count:   int(row.Count),
	}, nil
}

func (r *SQLiteRepository) MonthlyFlow(ctx context.Context, since core.Date) ([]core.MonthFlow, error) {
	rows, err := r.queries.GetMonthlyFlow(ctx, since.String())
	if err != nil {
		return nil, fmt.Errorf("get monthly flow: %w", err)
	}
	out := make([]core.MonthFlow, len(rows))
	for i, row := range rows {
		out[i] = core.MonthFlow{
			Month:   row.Month,
			Income:  core.FromCents(row.IncomeCents),
			Expense: core.FromCents(row.ExpenseCents),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	rows, err := r.queries.GetCategoryBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("get category breakdown: %w", err)
	}
	out := make([]core.CategoryAmount, len(rows))
	for i, row := range rows {
		out[i] = core.CategoryAmount{Category: row.Category, Total: core.FromCents(row.TotalCents)}
	}
	return out, nil
}

func (r *SQLiteRepository) Now(ctx context.Context) (time.Time, error) {
	s, err := r.queries.GetNow(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("query database time: %w", err)
	}
	t, err := time.Parse("2006-01-02T15:04:05.000Z", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse database time %q: %w", s, err)
	}
	return t, nil
}
