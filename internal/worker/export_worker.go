package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"quartergrid/internal/amqp"
	applog "quartergrid/internal/log"
	"quartergrid/internal/sheets"
	"quartergrid/internal/storage"
)

// SubmissionRepository is the part of the storage layer the worker needs.
type SubmissionRepository interface {
	GetSubmission(ctx context.Context, id int64) (*storage.Submission, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingSubmission, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// ExportWorker copies accepted submissions from SQLite to spreadsheet tabs,
// one tab per table.
type ExportWorker struct {
	storage     SubmissionRepository
	exporter    sheets.TableExporter
	prefix      string
	batchSize   int
	concurrency int
	logger      *applog.Logger
}

// Options configures an ExportWorker.
type Options struct {
	SheetPrefix string
	BatchSize   int
	Concurrency int
	Logger      *applog.Logger
}

func NewExportWorker(storage SubmissionRepository, exporter sheets.TableExporter, opts Options) *ExportWorker {
	if opts.SheetPrefix == "" {
		opts.SheetPrefix = "Table"
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportWorker{
		storage:     storage,
		exporter:    exporter,
		prefix:      opts.SheetPrefix,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		logger:      logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage processes a single "submission accepted" message from AMQP.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.SubmissionAcceptedMessage) error {
	w.logger.InfoContext(ctx, "Processing submission message",
		applog.FieldSubmission, msg.SubmissionID,
		applog.FieldSession, msg.SessionID)

	return w.export(ctx, msg.SubmissionID)
}

// ProcessPending exports submissions that have not been synced yet. This is
// the backup path for lost AMQP messages and for earlier failures.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processBatch(ctx, w.batchSize)
	return err
}

// StartupCheck exports a larger batch of pending submissions when the worker
// starts, to recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending submissions found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

// Run calls ProcessPending every interval until ctx is done.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err)
			}
		}
	}
}

func (w *ExportWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.storage.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending submissions: %w", err)
	}
	if len(pending) > 0 {
		w.logger.InfoContext(ctx, "Processing pending submissions", "count", len(pending))
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.export(ctx, p.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export submission",
				applog.FieldSubmission, p.ID, applog.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *ExportWorker) export(ctx context.Context, id int64) error {
	sub, err := w.storage.GetSubmission(ctx, id)
	if err != nil {
		w.markError(ctx, id)
		return fmt.Errorf("get submission from storage: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, table := range sub.Accepted.Grid.Tables {
		sheet := sheets.SheetName(w.prefix, table.Index)
		g.Go(func() error {
			if err := w.exporter.ExportTable(gctx, sheet, table); err != nil {
				return fmt.Errorf("export %s: %w", sheet, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.markError(ctx, id)
		return err
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// the tabs were written; a later pass will rewrite them identically
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			applog.FieldSubmission, id, applog.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Submission exported",
		applog.FieldSubmission, id,
		applog.FieldTables, len(sub.Accepted.Grid.Tables))
	return nil
}

func (w *ExportWorker) markError(ctx context.Context, id int64) {
	if err := w.storage.MarkSyncError(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark sync error",
			applog.FieldSubmission, id, applog.FieldError, err)
	}
}
