package google

import (
	"fmt"
	"strings"

	"quartergrid/internal/core"
	"quartergrid/internal/workbook"
)

// tableValues renders a table for a Values.Update call.
func tableValues(table core.Table) [][]interface{} {
	return workbook.TableValues(table)
}

// parseTable converts a values matrix, as returned by the Sheets API, back
// into raw cells.
func parseTable(values [][]interface{}, table int) (workbook.ParsedTable, error) {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = toStrings(v)
	}
	return workbook.ParseTable(rows, table)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
