package sheets

import (
	"context"
	"strconv"

	"quartergrid/internal/core"
)

// Ports for outbound adapters.
type (
	// SubmissionWriter persists an accepted grid and returns a reference
	// to where it was stored.
	SubmissionWriter interface {
		Save(ctx context.Context, sessionID string, acc *core.Accepted) (ref string, err error)
	}

	// TableExporter writes one computed table to a named sheet, replacing
	// what was there.
	TableExporter interface {
		ExportTable(ctx context.Context, sheet string, table core.Table) error
	}

	// SnapshotReader loads dimensions and raw values previously exported,
	// so a grid can be reopened for editing.
	SnapshotReader interface {
		ReadSnapshot(ctx context.Context) (core.State, core.Snapshot, error)
	}
)

// SheetName is the tab a table is exported to, e.g. "Table 2".
func SheetName(prefix string, table int) string {
	return prefix + " " + strconv.Itoa(table)
}
