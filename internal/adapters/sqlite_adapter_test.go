package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"quartergrid/internal/core"
	"quartergrid/internal/services"
	"quartergrid/internal/sheets"
	"quartergrid/internal/storage"
)

var (
	_ sheets.SubmissionWriter = (*SQLiteAdapter)(nil)
	_ sheets.SnapshotReader   = (*SQLiteAdapter)(nil)
)

func TestSQLiteAdapterRoundTrip(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "a.db"))
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	svc := services.NewSubmissionService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	a := NewSQLiteAdapter(repo, svc)
	ctx := context.Background()

	if err := a.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	snap := core.Snapshot{}
	snap.Set(1, 1, core.ColMar, 9)
	acc, err := core.Submit(core.NewState(2024), snap)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ref, err := a.Save(ctx, "sess", acc)
	if err != nil || ref != "1" {
		t.Fatalf("save ref=%q err=%v", ref, err)
	}

	st, got, err := a.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if st.CurrentYear != 2024 {
		t.Fatalf("unexpected state %+v", st)
	}
	if v, ok := got.Get(1, 1, core.ColMar); !ok || v != 9 {
		t.Fatalf("mar = %v %v", v, ok)
	}
}
