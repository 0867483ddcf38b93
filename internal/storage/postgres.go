package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"finset/internal/core"
)

// uniqueViolation is the SQLSTATE of a duplicate key.
const uniqueViolation = "23505"

var (
	_ TransactionStore = (*PostgresRepository)(nil)

	ErrDuplicateID = errors.New("transaction id already exists")
)

type PostgresRepository struct {
	db *tracedDB
}

// PostgresOptions tune the connection pool and the startup retry.
type PostgresOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

func DefaultPostgresOptions() PostgresOptions {
	return PostgresOptions{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  30 * time.Second,
	}
}

// NewPostgresRepository connects to dsn, retrying with exponential backoff
// until opts.ConnectTimeout elapses, then applies migrations.
func NewPostgresRepository(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = opts.ConnectTimeout
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "Postgres not ready, retrying", "error", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := RunPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Connected to Postgres")
	return &PostgresRepository{db: &tracedDB{DB: db, system: "postgresql"}}, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

const pgColumns = `id, type, amount, category, method, date, note, created_at`

func scanPG(sc interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx     core.Transaction
		typ    string
		amount decimal.Decimal
		date   time.Time
	)
	if err := sc.Scan(&tx.ID, &typ, &amount, &tx.Category, &tx.Method, &date, &tx.Note, &tx.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TxType(typ)
	tx.Amount = amount
	tx.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pgColumns+`
		FROM transactions
		ORDER BY date DESC, created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanPG(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := scanPG(r.db.QueryRow(ctx, `SELECT `+pgColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := scanPG(r.db.QueryRow(ctx, `
		INSERT INTO transactions (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+pgColumns,
		tx.ID, string(tx.Type), tx.Amount, tx.Category, tx.Method, tx.Date.String(), tx.Note, tx.CreatedAt.UTC(),
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return core.Transaction{}, fmt.Errorf("create transaction %s: %w", tx.ID, ErrDuplicateID)
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", saved.ID, "type", saved.Type, "amount", saved.Amount.StringFixed(2), "category", saved.Category)
	return saved, nil
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) BulkInsert(ctx context.Context, txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, tx := range txs {
		res, err := stmt.ExecContext(ctx,
			tx.ID, string(tx.Type), tx.Amount, tx.Category, tx.Method, tx.Date.String(), tx.Note, tx.CreatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("import transaction %s: %w", tx.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (core.Stats, error) {
	var s core.Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0),
			COUNT(*)
		FROM transactions`).Scan(&s.Income, &s.Expense, &s.Count)
	if err != nil {
		return core.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s, nil
}

func (r *PostgresRepository) MonthlyFlow(ctx context.Context, since core.Date) ([]core.MonthFlow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			to_char(date, 'YYYY-MM') AS month,
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE date >= $1
		GROUP BY month
		ORDER BY month`, since.String())
	if err != nil {
		return nil, fmt.Errorf("get monthly flow: %w", err)
	}
	defer rows.Close()

	out := []core.MonthFlow{}
	for rows.Next() {
		var m core.MonthFlow
		if err := rows.Scan(&m.Month, &m.Income, &m.Expense); err != nil {
			return nil, fmt.Errorf("scan monthly flow: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CategoryBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount) AS total
		FROM transactions
		WHERE type = 'expense'
		GROUP BY category
		ORDER BY total DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("get category breakdown: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Category, &c.Total); err != nil {
			return nil, fmt.Errorf("scan category breakdown: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("query database time: %w", err)
	}
	return now, nil
}
