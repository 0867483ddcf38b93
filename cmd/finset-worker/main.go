package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"finset/internal/amqp"
	"finset/internal/cli"
	"finset/internal/config"
	"finset/internal/export/search"
	"finset/internal/export/sheets"
	"finset/internal/log"
	"finset/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cli.LoadAndValidateConfig(logger, cfg)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []worker.Sink
	if cfg.SheetsEnabled() {
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sinks = append(sinks, client)
		logger.Info("Google Sheets sink enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}
	if cfg.SearchEnabled() {
		indexer, err := search.NewIndexer(cfg.ElasticsearchURLs, cfg.ElasticsearchIndex, cfg.FlushInterval)
		if err != nil {
			logger.Error("Failed to initialize Elasticsearch indexer", log.FieldError, err)
			os.Exit(1)
		}
		sinks = append(sinks, indexer)
		logger.Info("Elasticsearch sink enabled", "index", cfg.ElasticsearchIndex)
	}
	if len(sinks) == 0 {
		logger.Error("No sink configured: set GOOGLE_SPREADSHEET_ID or ELASTICSEARCH_URLS")
		os.Exit(1)
	}
	w := worker.New(sinks...)

	amqpClient, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.ReindexOnStart {
		g.Go(func() error {
			store, err := cli.InitStore(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer store.Cleanup()

			n, err := w.Reindex(ctx, store.Store)
			if err != nil {
				logger.Error("Reindex failed", log.FieldError, err, log.FieldCount, n)
				return nil
			}
			logger.Info("Reindex complete", log.FieldCount, n, "sinks", w.Sinks())
			return nil
		})
	}

	g.Go(func() error {
		return amqpClient.Consume(ctx, cfg.WorkerPrefetch, w.HandleEvent)
	})

	logger.Info("Starting finset-worker", "sinks", w.Sinks(), "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
