package main

import (
	"context"
	"errors"
	"os"
	"time"

	"quartergrid/internal/amqp"
	"quartergrid/internal/cli"
	applog "quartergrid/internal/log"
	ports "quartergrid/internal/sheets"
	gsheet "quartergrid/internal/sheets/google"
	"quartergrid/internal/sheets/memory"
	"quartergrid/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting quartergrid-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Without a spreadsheet the worker still drains the queue into memory,
	// which keeps local setups free of Google credentials.
	var exporter ports.TableExporter
	if cfg.GoogleSpreadsheetID != "" {
		credsFile := cfg.GoogleServiceAccountFile
		if credsFile == "" {
			credsFile = cfg.GoogleApplicationCredsFile
		}
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetPrefix:     cfg.GoogleSheetPrefix,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: credsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memory.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exporting to memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, exporter, worker.Options{
		SheetPrefix: cfg.GoogleSheetPrefix,
		BatchSize:   cfg.SyncBatchSize,
		Concurrency: cfg.ExportConcurrency,
		Logger:      logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup export check", applog.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeSubmissions(ctx, exportWorker.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	go exportWorker.Run(ctx, cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
