package workbook

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"quartergrid/internal/core"
)

func sampleGrid(t *testing.T) (core.State, core.Snapshot) {
	t.Helper()
	st := core.NewState(2025).AddRow().AddTable()
	snap := core.Snapshot{}
	for table := 1; table <= 2; table++ {
		snap.Set(table, 2, core.ColDec, 1)
		snap.Set(table, 1, core.ColJan, 10.5)
		snap.Set(table, 1, core.ColFeb, float64(table))
	}
	snap.Set(1, 2, core.ColYear, 1999)
	return st, snap
}

func TestXLSXRoundTrip(t *testing.T) {
	st, snap := sampleGrid(t)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, core.BuildGrid(st, snap)); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	gotSt, gotSnap, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if gotSt != st {
		t.Fatalf("state = %+v, want %+v", gotSt, st)
	}
	for k, v := range snap {
		if gotSnap[k] != v {
			t.Errorf("%s = %v, want %v", k, gotSnap[k], v)
		}
	}
	if _, ok := gotSnap.Get(1, 1, core.ColQ1); ok {
		t.Fatal("derived columns must not be read back")
	}
	if v, _ := gotSnap.Get(1, 1, core.ColYear); v != 2025 {
		t.Fatalf("seeded year should read back as a value, got %v", v)
	}
}

func TestXLSXLayout(t *testing.T) {
	st, snap := sampleGrid(t)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, core.BuildGrid(st, snap)); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != "Table 1" || got[1] != "Table 2" {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows("Table 1")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(rows[0], ",") != strings.Join(Header(), ",") {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "1999" || rows[2][0] != "2025" {
		t.Fatalf("rows should be oldest first, got years %s, %s", rows[1][0], rows[2][0])
	}
	if q1, _ := f.GetCellValue("Table 1", "E3"); q1 != "4.17" {
		t.Fatalf("display Q1 = %q, want 4.17", q1)
	}
}

func TestReadXLSXWithoutTables(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadXLSX(&buf); err == nil {
		t.Fatal("expected error for a workbook without table sheets")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	st, snap := sampleGrid(t)
	var buf bytes.Buffer
	if err := WriteYAML(&buf, NewDocument(st, snap)); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	if !strings.Contains(buf.String(), "current_year: 2025") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}

	gotSt, gotSnap, err := ReadYAML(&buf)
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	if gotSt != st || len(gotSnap) != len(snap) {
		t.Fatalf("got %+v %v", gotSt, gotSnap)
	}
}

func TestGridDocumentWithDerived(t *testing.T) {
	st, snap := sampleGrid(t)
	acc, err := core.Submit(st, snap)
	if err != nil {
		t.Fatal(err)
	}

	d := GridDocument(acc.Grid, true)
	var q1 *DocCell
	for i, c := range d.Cells {
		if c.Table == 1 && c.Row == 1 && c.Column == core.ColQ1 {
			q1 = &d.Cells[i]
		}
	}
	if q1 == nil || !q1.Computed || q1.Value != (10.5+1+0+1)/3 {
		t.Fatalf("q1 = %+v", q1)
	}

	// computed cells are informational only
	_, back, err := d.Grid()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := back.Get(1, 1, core.ColQ1); ok {
		t.Fatal("computed cells must be skipped on read")
	}

	if got := GridDocument(acc.Grid, false); len(got.Cells) >= len(d.Cells) {
		t.Fatal("derived cells should be left out")
	}
}

func TestDocumentGridErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"zero size", Document{CurrentYear: 2025}, "at least 1"},
		{"no year", Document{Tables: 1, Rows: 1}, "current_year"},
		{"bad column", Document{CurrentYear: 2025, Tables: 1, Rows: 1, Cells: []DocCell{{Table: 1, Row: 1, Column: "foo"}}}, "unknown column"},
		{"outside", Document{CurrentYear: 2025, Tables: 1, Rows: 1, Cells: []DocCell{{Table: 2, Row: 1, Column: "jan"}}}, "outside"},
		{"nan", Document{CurrentYear: 2025, Tables: 1, Rows: 1, Cells: []DocCell{{Table: 1, Row: 1, Column: "jan", Value: math.NaN()}}}, "invalid value"},
		{"infinite", Document{CurrentYear: 2025, Tables: 1, Rows: 1, Cells: []DocCell{{Table: 1, Row: 1, Column: "feb", Value: math.Inf(-1)}}}, "invalid value"},
		{"too large", Document{CurrentYear: 2025, Tables: 1, Rows: 1, Cells: []DocCell{{Table: 1, Row: 1, Column: "mar", Value: 2e15}}}, "invalid value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.doc.Grid()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestReadYAMLRejectsNaN(t *testing.T) {
	doc := "current_year: 2025\ntables: 1\nrows: 1\ncells:\n  - {table: 1, row: 1, column: jan, value: .nan}\n"
	if _, _, err := ReadYAML(strings.NewReader(doc)); !errors.Is(err, core.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
}

func TestFileHelpers(t *testing.T) {
	st, snap := sampleGrid(t)
	dir := t.TempDir()
	for _, name := range []string{"grid.xlsx", "grid.yaml"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(path, core.BuildGrid(st, snap), false); err != nil {
			t.Fatalf("%s: WriteFile: %v", name, err)
		}
		gotSt, gotSnap, err := ReadFile(path)
		if err != nil {
			t.Fatalf("%s: ReadFile: %v", name, err)
		}
		if gotSt != st {
			t.Fatalf("%s: state %+v", name, gotSt)
		}
		if v, _ := gotSnap.Get(2, 1, core.ColFeb); v != 2 {
			t.Fatalf("%s: feb = %v", name, v)
		}
	}

	if err := WriteFile(filepath.Join(dir, "grid.csv"), core.BuildGrid(st, snap), false); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

// dataLine builds a sheet line for grid row row, values filling the leading
// columns (year, jan, feb, ...).
func dataLine(row int, values ...string) []string {
	line := make([]string, len(Header()))
	copy(line, values)
	line[len(line)-1] = strconv.Itoa(row)
	return line
}

func TestParseTableSkipsBlankLines(t *testing.T) {
	rows := [][]string{Header(), dataLine(1, "2024", "1"), {"", ""}, {}}
	p, err := ParseTable(rows, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Rows != 1 || p.CurrentYear != 2024 {
		t.Fatalf("parsed %+v", p)
	}
}

func TestParseTableBlankFinalRowKeepsIndices(t *testing.T) {
	// row 1 cleared entirely, so the source drops the trailing line
	rows := [][]string{Header(), dataLine(2, "2024", "5")}
	p, err := ParseTable(rows, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Rows != 2 || p.CurrentYear != 2025 {
		t.Fatalf("parsed %+v", p)
	}
	if v, ok := p.Snapshot.Get(1, 2, core.ColJan); !ok || v != 5 {
		t.Fatalf("jan should stay on row 2, snapshot=%v", p.Snapshot)
	}
	if _, ok := p.Snapshot.Get(1, 1, core.ColJan); ok {
		t.Fatal("row 1 must stay empty")
	}
}

func TestBlankFinalRowInOneTableKeepsShape(t *testing.T) {
	t1, err := ParseTable([][]string{Header(), dataLine(2, "2024", "5"), dataLine(1, "2025")}, 1)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := ParseTable([][]string{Header(), dataLine(2, "2024", "7")}, 2)
	if err != nil {
		t.Fatal(err)
	}
	st, snap, err := Assemble([]ParsedTable{t1, t2}, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if st.Rows != 2 || st.CurrentYear != 2025 {
		t.Fatalf("state %+v", st)
	}
	if errs := core.Validate(st, snap); errs.Count(core.ShapeMismatch) != 0 {
		t.Fatalf("unexpected shape errors: %v", errs)
	}
}

func TestReadXLSXWithDeletedFinalRow(t *testing.T) {
	st := core.NewState(2025).AddRow()
	snap := core.Snapshot{}
	snap.Set(1, 2, core.ColJan, 5)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, core.BuildGrid(st, snap)); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.RemoveRow("Table 1", 3); err != nil {
		t.Fatal(err)
	}
	var edited bytes.Buffer
	if _, err := f.WriteTo(&edited); err != nil {
		t.Fatal(err)
	}
	f.Close()

	gotSt, gotSnap, err := ReadXLSX(&edited)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if gotSt.Rows != 2 {
		t.Fatalf("rows = %d, want 2", gotSt.Rows)
	}
	if v, _ := gotSnap.Get(1, 2, core.ColJan); v != 5 {
		t.Fatalf("row 2 jan = %v, want 5", v)
	}
}

func TestParseTableRowNumberErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{"missing header", [][]string{Header()[:18]}, "missing Row"},
		{"no number", [][]string{Header(), dataLine(1, "2024")[:2]}, "invalid row number"},
		{"zero", [][]string{Header(), dataLine(0, "2024")}, "invalid row number"},
		{"duplicate", [][]string{Header(), dataLine(1, "2024"), dataLine(1, "2025")}, "duplicate row 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(tt.rows, 1)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestAssembleRequiresConsecutiveTables(t *testing.T) {
	if _, _, err := Assemble([]ParsedTable{{Index: 2, Rows: 1}}, 2025); err == nil {
		t.Fatal("expected error for a gap")
	}
	st, _, err := Assemble([]ParsedTable{{Index: 1, Rows: 3}, {Index: 2, Rows: 1}}, 2025)
	if err != nil || st.Rows != 3 || st.CurrentYear != 2025 {
		t.Fatalf("Assemble = %+v, %v", st, err)
	}
}
