package workbook

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"quartergrid/internal/core"
	"quartergrid/internal/sheets"
)

// SheetPrefix names workbook sheets: "Table 1", "Table 2", ...
const SheetPrefix = "Table"

// WriteXLSX writes one sheet per table with the display header and rows.
// Values are written as given: pass a display grid for rounded aggregates
// or an accepted grid for unrounded ones.
func WriteXLSX(w io.Writer, g core.Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, table := range g.Tables {
		name := sheets.SheetName(SheetPrefix, table.Index)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}

		for r, values := range TableValues(table) {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			row := values
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
		}
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return fmt.Errorf("style %s: %w", name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadXLSX reads consecutive "Table N" sheets back into a grid. Other
// sheets are ignored.
func ReadXLSX(r io.Reader) (core.State, core.Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return core.State{}, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	present := map[string]bool{}
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	var tables []ParsedTable
	for n := 1; present[sheets.SheetName(SheetPrefix, n)]; n++ {
		name := sheets.SheetName(SheetPrefix, n)
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return core.State{}, nil, fmt.Errorf("read %s: %w", name, err)
		}
		parsed, err := ParseTable(rows, n)
		if err != nil {
			return core.State{}, nil, fmt.Errorf("parse %s: %w", name, err)
		}
		tables = append(tables, parsed)
	}
	if len(tables) == 0 {
		return core.State{}, nil, fmt.Errorf("no %q sheet found", sheets.SheetName(SheetPrefix, 1))
	}
	return Assemble(tables, time.Now().Year())
}
