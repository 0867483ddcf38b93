package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so queries can run inside a
// transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQLite statements of the transactions table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors a row of the transactions table.
type TransactionRow struct {
	ID          string
	Type        string
	AmountCents int64
	Category    string
	Method      string
	Date        string
	Note        string
	CreatedAt   string
}

const transactionColumns = `id, type, amount_cents, category, method, date, note, created_at`

func scanTransaction(sc interface{ Scan(...any) error }) (TransactionRow, error) {
	var r TransactionRow
	err := sc.Scan(&r.ID, &r.Type, &r.AmountCents, &r.Category, &r.Method, &r.Date, &r.Note, &r.CreatedAt)
	return r, err
}

const listTransactions = `SELECT ` + transactionColumns + `
FROM transactions
ORDER BY date DESC, created_at DESC, id DESC`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionRow{}
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		r.ID, r.Type, r.AmountCents, r.Category, r.Method, r.Date, r.Note, r.CreatedAt)
	return err
}

const insertTransactionIgnore = `INSERT OR IGNORE INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// InsertTransactionIgnore inserts r unless its id exists and reports the
// number of rows written (0 or 1).
func (q *Queries) InsertTransactionIgnore(ctx context.Context, r TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransactionIgnore,
		r.ID, r.Type, r.AmountCents, r.Category, r.Method, r.Date, r.Note, r.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getStats = `SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0),
    COUNT(*)
FROM transactions`

type StatsRow struct {
	IncomeCents  int64
	ExpenseCents int64
	Count        int64
}

func (q *Queries) GetStats(ctx context.Context) (StatsRow, error) {
	var r StatsRow
	err := q.db.QueryRowContext(ctx, getStats).Scan(&r.IncomeCents, &r.ExpenseCents, &r.Count)
	return r, err
}

const getMonthlyFlow = `SELECT
    substr(date, 1, 7) AS month,
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
FROM transactions
WHERE date >= ?
GROUP BY month
ORDER BY month`

type MonthlyFlowRow struct {
	Month        string
	IncomeCents  int64
	ExpenseCents int64
}

func (q *Queries) GetMonthlyFlow(ctx context.Context, since string) ([]MonthlyFlowRow, error) {
	rows, err := q.db.QueryContext(ctx, getMonthlyFlow, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MonthlyFlowRow{}
	for rows.Next() {
		var r MonthlyFlowRow
		if err := rows.Scan(&r.Month, &r.IncomeCents, &r.ExpenseCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getCategoryBreakdown = `SELECT category, SUM(amount_cents) AS total
FROM transactions
WHERE type = 'expense'
GROUP BY category
ORDER BY total DESC, category`

type CategorySumRow struct {
	Category   string
	TotalCents int64
}

func (q *Queries) GetCategoryBreakdown(ctx context.Context) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx, getCategoryBreakdown)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CategorySumRow{}
	for rows.Next() {
		var r CategorySumRow
		if err := rows.Scan(&r.Category, &r.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getNow = `SELECT strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

func (q *Queries) GetNow(ctx context.Context) (string, error) {
	var now string
	err := q.db.QueryRowContext(ctx, getNow).Scan(&now)
	return now, err
}
