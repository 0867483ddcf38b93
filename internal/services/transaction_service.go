package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"finset/internal/aggregate"
	"finset/internal/amqp"
	"finset/internal/core"
	"finset/internal/storage"
)

const (
	DefaultFlowMonths = 7
	MaxFlowMonths     = 24
)

// EventPublisher announces store mutations. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.TransactionEvent) error
	Close() error
}

// TransactionService orchestrates transaction operations across the store
// and the event exchange.
type TransactionService struct {
	store     storage.TransactionStore
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

type Option func(*TransactionService)

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *TransactionService) { s.newID = gen }
}

// NewTransactionService wires a store with an optional publisher; a nil
// publisher disables events.
func NewTransactionService(store storage.TransactionStore, publisher EventPublisher, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for readiness checks and reindexing.
func (s *TransactionService) Store() storage.TransactionStore {
	return s.store
}

// Create validates in, assigns an id and created_at, saves and publishes a
// created event. Any id supplied by the caller is ignored.
func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := core.ParseTransactionInput(in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = s.newID()
	tx.CreatedAt = s.now().UTC()

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publish(ctx, amqp.NewCreatedEvent(saved)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish created event", "id", saved.ID, "error", err)
	}
	return saved, nil
}

func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Transaction{}, ErrIDRequired
	}
	return s.store.GetTransaction(ctx, id)
}

// ErrIDRequired is returned when a path id is blank.
var ErrIDRequired = &core.ValidationError{Field: "id", Message: "id required"}

// Delete removes the transaction and publishes a deleted event.
// core.ErrNotFound is returned for unknown ids.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrIDRequired
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publish(ctx, amqp.NewDeletedEvent(id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deleted event", "id", id, "error", err)
	}
	return nil
}

// Import validates every record, keeps the caller's id when present and
// bulk inserts the valid ones. Invalid records and ids already stored count
// as skipped.
func (s *TransactionService) Import(ctx context.Context, inputs []core.TransactionInput) (core.ImportResult, error) {
	res := core.ImportResult{Total: len(inputs)}
	now := s.now().UTC()

	valid := make([]core.Transaction, 0, len(inputs))
	for i, in := range inputs {
		tx, err := core.ParseTransactionInput(in)
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid import record", "index", i, "error", err)
			continue
		}
		if tx.ID == "" {
			tx.ID = s.newID()
		}
		tx.CreatedAt = now
		valid = append(valid, tx)
	}

	inserted, err := s.store.BulkInsert(ctx, valid)
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("import transactions: %w", err)
	}
	res.Inserted = inserted
	res.Skipped = res.Total - inserted

	slog.InfoContext(ctx, "Import completed", "inserted", res.Inserted, "skipped", res.Skipped, "total", res.Total)
	return res, nil
}

func (s *TransactionService) Stats(ctx context.Context) (core.Stats, error) {
	return s.store.Stats(ctx)
}

// ClampMonths applies the monthly flow window rules: default when months
// is not positive, otherwise at most MaxFlowMonths.
func ClampMonths(months int) int {
	switch {
	case months <= 0:
		return DefaultFlowMonths
	case months > MaxFlowMonths:
		return MaxFlowMonths
	default:
		return months
	}
}

// MonthlyFlow returns one row per month for the last months months,
// including the current one, with zero rows for gaps.
func (s *TransactionService) MonthlyFlow(ctx context.Context, months int) ([]core.MonthFlow, error) {
	months = ClampMonths(months)
	today := core.DateOf(s.now())
	since := core.NewDate(today.Year(), int(today.Month()), 1)
	since = core.Date{Time: since.AddDate(0, -(months - 1), 0)}

	rows, err := s.store.MonthlyFlow(ctx, since)
	if err != nil {
		return nil, err
	}
	return aggregate.FillMonths(since, months, rows), nil
}

func (s *TransactionService) CategoryBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	return s.store.CategoryBreakdown(ctx)
}

// Health reports the database clock.
func (s *TransactionService) Health(ctx context.Context) (time.Time, error) {
	return s.store.Now(ctx)
}

func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "event", ev.RoutingKey())
		return nil
	}
	return s.publisher.Publish(ctx, ev)
}

// Close closes both storage and publisher connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
