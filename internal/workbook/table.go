// Package workbook converts grids to and from tabular files: XLSX workbooks
// with one sheet per table and YAML documents of cells. The same tabular
// layout is used for spreadsheet tabs.
package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"quartergrid/internal/core"
)

// RowLabel heads the trailing column carrying each data row's grid index.
// Readers number rows by it, so blank rows dropped by a source do not shift
// the rows around them.
const RowLabel = "Row"

// Header returns the display column labels followed by RowLabel.
func Header() []string {
	cols := core.Columns()
	out := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		out = append(out, c.Label)
	}
	return append(out, RowLabel)
}

// TableValues renders a table as a header row followed by one row per grid
// row in display order, each ending with its row index. Empty cells are
// blank strings.
func TableValues(table core.Table) [][]any {
	header := Header()
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	out := [][]any{head}
	for _, r := range table.Rows {
		row := make([]any, 0, len(r.Cells)+1)
		for _, cell := range r.Cells {
			if cell.Empty {
				row = append(row, "")
			} else {
				row = append(row, cell.Value)
			}
		}
		out = append(out, append(row, r.Index))
	}
	return out
}

// ParsedTable is one table read back from a tabular source.
type ParsedTable struct {
	Index       int
	Rows        int
	CurrentYear int
	Snapshot    core.Snapshot
}

// ParseTable reads the layout written by TableValues. It needs the Year,
// Jan..Dec and Row headers; derived columns are ignored. Rows are numbered
// by their Row cell, never by position, and the table is as tall as the
// highest index seen. A line left entirely blank, Row included, is skipped.
func ParseTable(values [][]string, table int) (ParsedTable, error) {
	if len(values) == 0 {
		return ParsedTable{}, fmt.Errorf("unexpected table header: sheet is empty")
	}
	headers := values[0]
	idx := map[core.Column]int{}
	var missing []string
	for _, spec := range core.Columns() {
		if spec.ID.Derived() {
			continue
		}
		i := indexOf(headers, spec.Label)
		if i == -1 {
			missing = append(missing, spec.Label)
			continue
		}
		idx[spec.ID] = i
	}
	rowCol := indexOf(headers, RowLabel)
	if rowCol == -1 {
		missing = append(missing, RowLabel)
	}
	if len(missing) > 0 {
		return ParsedTable{}, fmt.Errorf("unexpected table header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := ParsedTable{Index: table, Snapshot: core.Snapshot{}}
	seen := map[int]bool{}
	yearRow := 0
	for i, cols := range values[1:] {
		line := i + 2
		if blank(cols) {
			continue
		}
		row, err := rowNumber(safeGet(cols, rowCol))
		if err != nil {
			return ParsedTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[row] {
			return ParsedTable{}, fmt.Errorf("line %d: duplicate row %d", line, row)
		}
		seen[row] = true
		if row > out.Rows {
			out.Rows = row
		}

		for col, ci := range idx {
			v, ok, err := core.ParseValue(safeGet(cols, ci))
			if err != nil {
				return ParsedTable{}, fmt.Errorf("line %d column %s: %w", line, col, err)
			}
			if ok {
				out.Snapshot.Set(table, row, col, v)
			}
		}
		// The current year is read from the lowest row that has one.
		if y, err := strconv.Atoi(safeGet(cols, idx[core.ColYear])); err == nil && (yearRow == 0 || row < yearRow) {
			yearRow = row
			out.CurrentYear = y + row - 1
		}
	}
	return out, nil
}

// Assemble merges consecutive tables into one grid. The current year comes
// from the first table, or fallbackYear when it has no year cells.
func Assemble(tables []ParsedTable, fallbackYear int) (core.State, core.Snapshot, error) {
	if len(tables) == 0 {
		return core.State{}, nil, fmt.Errorf("no tables found")
	}
	st := core.State{Tables: len(tables), Rows: 1, CurrentYear: fallbackYear}
	snap := core.Snapshot{}
	for i, t := range tables {
		if t.Index != i+1 {
			return core.State{}, nil, fmt.Errorf("table %d is missing", i+1)
		}
		for k, v := range t.Snapshot {
			snap[k] = v
		}
		if t.Rows > st.Rows {
			st.Rows = t.Rows
		}
	}
	if tables[0].CurrentYear != 0 {
		st.CurrentYear = tables[0].CurrentYear
	}
	return st, snap, nil
}

// rowNumber accepts "3" and the "3.0" some spreadsheet exports produce.
func rowNumber(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > 1e6 || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid row number %q", s)
	}
	return int(f), nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}
