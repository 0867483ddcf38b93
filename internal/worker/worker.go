// Package worker applies transaction events to export sinks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"finset/internal/amqp"
	"finset/internal/core"
)

// DefaultBatchSize bounds the number of transactions sent per sink call
// during a reindex.
const DefaultBatchSize = 500

// Sink is an external copy of the transaction store.
type Sink interface {
	Name() string
	Upsert(ctx context.Context, txs []core.Transaction) error
	Delete(ctx context.Context, id string) error
}

// Lister is the read side of the store needed for a reindex.
type Lister interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

type Worker struct {
	sinks     []Sink
	batchSize int
}

func New(sinks ...Sink) *Worker {
	return &Worker{sinks: sinks, batchSize: DefaultBatchSize}
}

// Sinks returns the configured sink names.
func (w *Worker) Sinks() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// HandleEvent applies ev to every sink concurrently. The returned error
// joins the failures of all sinks, so a failing sink never hides another.
func (w *Worker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Processing transaction event", "event", ev.RoutingKey(), "id", ev.ID)

	return w.fanOut(ctx, func(ctx context.Context, s Sink) error {
		switch ev.Action {
		case amqp.ActionCreated:
			return s.Upsert(ctx, []core.Transaction{*ev.Transaction})
		default:
			return s.Delete(ctx, ev.ID)
		}
	})
}

// Reindex pushes every stored transaction to every sink in batches.
func (w *Worker) Reindex(ctx context.Context, store Lister) (int, error) {
	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	slog.InfoContext(ctx, "Reindexing transactions", "count", len(txs), "sinks", w.Sinks())

	for start := 0; start < len(txs); start += w.batchSize {
		end := min(start+w.batchSize, len(txs))
		batch := txs[start:end]
		if err := w.fanOut(ctx, func(ctx context.Context, s Sink) error {
			return s.Upsert(ctx, batch)
		}); err != nil {
			return start, err
		}
	}
	return len(txs), nil
}

func (w *Worker) fanOut(ctx context.Context, apply func(context.Context, Sink) error) error {
	errs := make([]error, len(w.sinks))
	var g errgroup.Group
	for i, s := range w.sinks {
		g.Go(func() error {
			if err := apply(ctx, s); err != nil {
				slog.ErrorContext(ctx, "Sink failed", "sink", s.Name(), "error", err)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}
	// Sinks are independent copies: one failing must not cancel the others,
	// so failures are collected in errs rather than returned to the group.
	_ = g.Wait()
	return errors.Join(errs...)
}
