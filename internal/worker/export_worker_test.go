package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"quartergrid/internal/amqp"
	"quartergrid/internal/core"
	"quartergrid/internal/sheets/memory"
	"quartergrid/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func saveGrid(t *testing.T, repo *storage.SQLiteRepository, tables int) int64 {
	t.Helper()
	st := core.NewState(2025)
	snap := core.Snapshot{}
	for i := 2; i <= tables; i++ {
		st = st.AddTable()
	}
	for i := 1; i <= tables; i++ {
		snap.Set(i, 1, core.ColJan, float64(i))
		snap.Set(i, 1, core.ColFeb, 2)
	}
	acc, err := core.Submit(st, snap)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	id, err := repo.SaveSubmission(context.Background(), "s", acc)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return id
}

func TestHandleMessageExportsEveryTable(t *testing.T) {
	repo := newRepo(t)
	mem := memory.New()
	id := saveGrid(t, repo, 3)

	w := NewExportWorker(repo, mem, Options{SheetPrefix: "Grid", Concurrency: 2})
	if err := w.HandleMessage(context.Background(), amqp.NewSubmissionAcceptedMessage(id, "s", 3, 1)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	for i, name := range []string{"Grid 1", "Grid 2", "Grid 3"} {
		table, ok := mem.Sheet(name)
		if !ok {
			t.Fatalf("missing sheet %s", name)
		}
		row, _ := table.Row(1)
		if v, _ := row.Value(core.ColJan); v != float64(i+1) {
			t.Fatalf("%s jan = %v", name, v)
		}
	}

	sub, err := repo.GetSubmission(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if sub.SyncStatus != storage.SyncDone {
		t.Fatalf("status = %s", sub.SyncStatus)
	}
}

type flakyExporter struct {
	mu    sync.Mutex
	fail  string
	calls []string
}

func (f *flakyExporter) ExportTable(_ context.Context, sheet string, _ core.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sheet)
	if sheet == f.fail {
		return errors.New("quota exceeded")
	}
	return nil
}

func TestExportFailureMarksError(t *testing.T) {
	repo := newRepo(t)
	id := saveGrid(t, repo, 2)

	w := NewExportWorker(repo, &flakyExporter{fail: "Table 2"}, Options{Concurrency: 1})
	err := w.HandleMessage(context.Background(), amqp.NewSubmissionAcceptedMessage(id, "s", 2, 1))
	if err == nil {
		t.Fatal("expected export error")
	}

	sub, _ := repo.GetSubmission(context.Background(), id)
	if sub.SyncStatus != storage.SyncError || sub.SyncAttempts != 1 {
		t.Fatalf("unexpected sync state %s/%d", sub.SyncStatus, sub.SyncAttempts)
	}
}

func TestHandleMessageUnknownSubmission(t *testing.T) {
	repo := newRepo(t)
	w := NewExportWorker(repo, memory.New(), Options{})
	err := w.HandleMessage(context.Background(), amqp.NewSubmissionAcceptedMessage(42, "s", 1, 1))
	if !errors.Is(err, storage.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessPendingRetriesFailures(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	first := saveGrid(t, repo, 1)
	second := saveGrid(t, repo, 2)

	exp := &flakyExporter{fail: "Table 2"}
	w := NewExportWorker(repo, exp, Options{BatchSize: 10})
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if sub, _ := repo.GetSubmission(ctx, first); sub.SyncStatus != storage.SyncDone {
		t.Fatalf("first = %s", sub.SyncStatus)
	}
	if sub, _ := repo.GetSubmission(ctx, second); sub.SyncStatus != storage.SyncError {
		t.Fatalf("second = %s", sub.SyncStatus)
	}

	exp.fail = ""
	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %v", pending)
	}
}
