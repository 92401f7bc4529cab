package memory

import (
	"context"
	"testing"

	"quartergrid/internal/core"
	"quartergrid/internal/sheets"
)

var (
	_ sheets.SubmissionWriter = (*Store)(nil)
	_ sheets.TableExporter    = (*Store)(nil)
	_ sheets.SnapshotReader   = (*Store)(nil)
)

func accepted(t *testing.T) *core.Accepted {
	t.Helper()
	snap := core.Snapshot{}
	snap.Set(1, 1, core.ColJan, 10)
	acc, err := core.Submit(core.NewState(2024), snap)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return acc
}

func TestMemoryStoreSaveAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, _, err := s.ReadSnapshot(ctx); err == nil {
		t.Fatalf("expected error on empty store")
	}

	ref, err := s.Save(ctx, "sess", accepted(t))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected save: ref=%q err=%v", ref, err)
	}
	st, snap, err := s.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if st.Tables != 1 || st.Rows != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	if v, ok := snap.Get(1, 1, core.ColJan); !ok || v != 10 {
		t.Fatalf("jan = %v %v", v, ok)
	}
	snap.Set(1, 1, core.ColJan, 99)
	if _, again, _ := s.ReadSnapshot(ctx); again[core.CellKey{Table: 1, Row: 1, Column: core.ColJan}] != 10 {
		t.Fatalf("ReadSnapshot must return a copy")
	}
	if s.Saved() != 1 {
		t.Fatalf("saved = %d", s.Saved())
	}
}

func TestMemoryStoreExportTable(t *testing.T) {
	s := New()
	acc := accepted(t)
	name := sheets.SheetName("Table", 1)
	if err := s.ExportTable(context.Background(), name, acc.Grid.Tables[0]); err != nil {
		t.Fatalf("export: %v", err)
	}
	table, ok := s.Sheet("Table 1")
	if !ok || len(table.Rows) != 1 {
		t.Fatalf("unexpected sheet %+v %v", table, ok)
	}
}

func TestMemoryStoreSeed(t *testing.T) {
	s := New()
	snap := core.Snapshot{}
	snap.Set(2, 1, core.ColMar, 3)
	s.Seed(core.NewState(2024).AddTable(), snap)
	st, got, err := s.ReadSnapshot(context.Background())
	if err != nil || st.Tables != 2 || len(got) != 1 {
		t.Fatalf("unexpected seed read %+v %v %v", st, got, err)
	}
}
