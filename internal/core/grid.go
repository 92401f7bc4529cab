package core

type (
	// Cell is one materialised grid cell.
	Cell struct {
		Key      CellKey
		Value    float64
		Empty    bool
		Computed bool
	}

	// Row holds the cells of one row in display column order.
	Row struct {
		Index int
		Cells []Cell
	}

	// Table holds rows in display order: the highest row index first.
	Table struct {
		Index int
		Rows  []Row
	}

	// Grid is a projection of a State and a Snapshot. It is rebuilt on
	// every interaction and never stored.
	Grid struct {
		State   State
		Columns []ColumnSpec
		Tables  []Table
	}
)

// BuildGrid materialises the grid for display. Derived columns are rounded
// to two decimals; the year cell falls back to its seed when not edited.
func BuildGrid(st State, snap Snapshot) Grid {
	return buildGrid(st, snap, true)
}

func buildGrid(st State, snap Snapshot, round bool) Grid {
	st = st.normalized()
	g := Grid{State: st, Columns: Columns()}
	for t := 1; t <= st.Tables; t++ {
		table := Table{Index: t, Rows: make([]Row, 0, st.Rows)}
		for r := st.Rows; r >= 1; r-- {
			table.Rows = append(table.Rows, buildRow(st, snap, t, r, round))
		}
		g.Tables = append(g.Tables, table)
	}
	return g
}

func buildRow(st State, snap Snapshot, table, row int, round bool) Row {
	agg := ComputeRow(monthsOf(snap, table, row))
	if round {
		agg = agg.Rounded()
	}
	out := Row{Index: row, Cells: make([]Cell, 0, len(schema))}
	for _, spec := range schema {
		c := Cell{
			Key:      CellKey{Table: table, Row: row, Column: spec.ID},
			Computed: spec.Computed,
		}
		switch {
		case spec.ID == ColYear:
			if v, ok := snap.Get(table, row, ColYear); ok {
				c.Value = v
			} else {
				c.Value = float64(st.DefaultYear(row))
			}
		case spec.ID.Derived():
			c.Value, _ = agg.Value(spec.ID)
		default:
			v, ok := snap.Get(table, row, spec.ID)
			c.Value, c.Empty = v, !ok
		}
		out.Cells = append(out.Cells, c)
	}
	return out
}

// Table returns the table with the given 1-based index.
func (g Grid) Table(index int) (Table, bool) {
	if index < 1 || index > len(g.Tables) {
		return Table{}, false
	}
	return g.Tables[index-1], true
}

// Row returns the row with the given 1-based index.
func (t Table) Row(index int) (Row, bool) {
	for _, r := range t.Rows {
		if r.Index == index {
			return r, true
		}
	}
	return Row{}, false
}

// Cell returns the cell for a column.
func (r Row) Cell(c Column) (Cell, bool) {
	for _, cell := range r.Cells {
		if cell.Key.Column == c {
			return cell, true
		}
	}
	return Cell{}, false
}

// Value is a shorthand for Cell(c).Value; empty cells report ok=false.
func (r Row) Value(c Column) (float64, bool) {
	cell, ok := r.Cell(c)
	if !ok || cell.Empty {
		return 0, false
	}
	return cell.Value, true
}
