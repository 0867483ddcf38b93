// Package search mirrors transactions into an Elasticsearch index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"finset/internal/core"
)

const (
	flushBytes = 2048
	numWorkers = 1
)

// document is the indexed shape of a transaction. Amount is a number so
// range queries and aggregations work.
type document struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Method    string    `json:"method"`
	Date      string    `json:"date"`
	Month     string    `json:"month"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toDocument(tx core.Transaction) document {
	return document{
		ID:        tx.ID,
		Type:      string(tx.Type),
		Amount:    tx.Amount.InexactFloat64(),
		Category:  tx.Category,
		Method:    tx.Method,
		Date:      tx.Date.String(),
		Month:     tx.Date.MonthKey(),
		Note:      tx.Note,
		CreatedAt: tx.CreatedAt,
	}
}

// Indexer writes transactions into one index with the bulk API.
type Indexer struct {
	es            *elasticsearch.Client
	index         string
	flushInterval time.Duration

	ensureOnce sync.Once
}

func NewIndexer(urls []string, index string, flushInterval time.Duration) (*Indexer, error) {
	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: urls,

		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Indexer{es: es, index: index, flushInterval: flushInterval}, nil
}

func (ix *Indexer) Name() string { return "elasticsearch" }

// ensureIndex creates the index once per process. An existing index is fine.
func (ix *Indexer) ensureIndex(ctx context.Context) {
	ix.ensureOnce.Do(func() {
		res, err := ix.es.Indices.Create(ix.index, ix.es.Indices.Create.WithContext(ctx))
		if err != nil {
			slog.WarnContext(ctx, "Could not create search index", "index", ix.index, "error", err)
			return
		}
		defer res.Body.Close()
		if res.IsError() && res.StatusCode != http.StatusBadRequest {
			slog.WarnContext(ctx, "Could not create search index", "index", ix.index, "status", res.Status())
		}
	})
}

// Upsert indexes txs by id.
func (ix *Indexer) Upsert(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	ix.ensureIndex(ctx)

	items := make([]esutil.BulkIndexerItem, 0, len(txs))
	for _, tx := range txs {
		data, err := json.Marshal(toDocument(tx))
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", tx.ID, err)
		}
		items = append(items, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: tx.ID,
			Body:       bytes.NewReader(data),
		})
	}
	return ix.bulk(ctx, items)
}

// Delete removes the document for id. A missing document is not an error.
func (ix *Indexer) Delete(ctx context.Context, id string) error {
	return ix.bulk(ctx, []esutil.BulkIndexerItem{{Action: "delete", DocumentID: id}})
}

func (ix *Indexer) bulk(ctx context.Context, items []esutil.BulkIndexerItem) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         ix.index,
		Client:        ix.es,
		FlushBytes:    flushBytes,
		NumWorkers:    numWorkers,
		FlushInterval: ix.flushInterval,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	var (
		mu       sync.Mutex
		failures []string
	)
	onFailure := func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		if item.Action == "delete" && res.Status == http.StatusNotFound {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s %s: %v", item.Action, item.DocumentID, err))
			return
		}
		failures = append(failures, fmt.Sprintf("%s %s: %s: %s", item.Action, item.DocumentID, res.Error.Type, res.Error.Reason))
	}

	for _, item := range items {
		item.OnFailure = onFailure
		if err := bi.Add(ctx, item); err != nil {
			bi.Close(ctx)
			return fmt.Errorf("queue %s %s: %w", item.Action, item.DocumentID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if len(failures) > 0 {
		slog.ErrorContext(ctx, "Bulk request had failures",
			"index", ix.index, "flushed", stats.NumFlushed, "failed", len(failures))
		return errors.New("bulk failures: " + strings.Join(failures, "; "))
	}

	slog.InfoContext(ctx, "Bulk request completed", "index", ix.index, "flushed", stats.NumFlushed)
	return nil
}
