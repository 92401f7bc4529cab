package workbook

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"quartergrid/internal/core"
)

// Document is the YAML form of a grid.
type Document struct {
	CurrentYear int       `yaml:"current_year"`
	Tables      int       `yaml:"tables"`
	Rows        int       `yaml:"rows"`
	Cells       []DocCell `yaml:"cells"`
}

// DocCell is one non-empty cell. Computed cells are written for reference
// and skipped on read.
type DocCell struct {
	Table    int         `yaml:"table"`
	Row      int         `yaml:"row"`
	Column   core.Column `yaml:"column"`
	Value    float64     `yaml:"value"`
	Computed bool        `yaml:"computed,omitempty"`
}

// NewDocument lists the raw snapshot cells.
func NewDocument(st core.State, snap core.Snapshot) Document {
	d := Document{CurrentYear: st.CurrentYear, Tables: st.Tables, Rows: st.Rows, Cells: []DocCell{}}
	raw := snap.Raw()
	for _, k := range raw.Keys() {
		if k.IsTable() {
			continue
		}
		d.Cells = append(d.Cells, DocCell{Table: k.Table, Row: k.Row, Column: k.Column, Value: raw[k]})
	}
	return d
}

// GridDocument lists the non-empty cells of a grid, year cells included.
// Derived columns are added, flagged computed, when withDerived is set.
func GridDocument(g core.Grid, withDerived bool) Document {
	d := Document{CurrentYear: g.State.CurrentYear, Tables: g.State.Tables, Rows: g.State.Rows, Cells: []DocCell{}}
	for _, t := range g.Tables {
		for i := len(t.Rows) - 1; i >= 0; i-- {
			for _, c := range t.Rows[i].Cells {
				derived := c.Key.Column.Derived()
				if c.Empty || (derived && !withDerived) {
					continue
				}
				d.Cells = append(d.Cells, DocCell{
					Table:    c.Key.Table,
					Row:      c.Key.Row,
					Column:   c.Key.Column,
					Value:    c.Value,
					Computed: derived,
				})
			}
		}
	}
	return d
}

// Grid checks the document and returns its state and raw snapshot.
func (d Document) Grid() (core.State, core.Snapshot, error) {
	st := core.State{Tables: d.Tables, Rows: d.Rows, CurrentYear: d.CurrentYear}
	if st.Tables < 1 || st.Rows < 1 {
		return core.State{}, nil, fmt.Errorf("tables and rows must be at least 1, got %d×%d", st.Tables, st.Rows)
	}
	if st.CurrentYear == 0 {
		return core.State{}, nil, fmt.Errorf("current_year is required")
	}
	snap := core.Snapshot{}
	for i, c := range d.Cells {
		col, err := core.ParseColumn(string(c.Column))
		if err != nil {
			return core.State{}, nil, fmt.Errorf("cell %d: %w: %q", i, err, c.Column)
		}
		if col.Derived() {
			continue
		}
		if !st.Contains(c.Table, c.Row) {
			return core.State{}, nil, fmt.Errorf("cell %d: table %d row %d outside a %d×%d grid", i, c.Table, c.Row, st.Tables, st.Rows)
		}
		if err := core.CheckValue(c.Value); err != nil {
			return core.State{}, nil, fmt.Errorf("cell %d: %w: %v", i, err, c.Value)
		}
		snap.Set(c.Table, c.Row, col, c.Value)
	}
	return st, snap, nil
}

// WriteYAML encodes d.
func WriteYAML(w io.Writer, d Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a document and returns its grid.
func ReadYAML(r io.Reader) (core.State, core.Snapshot, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return core.State{}, nil, fmt.Errorf("decode yaml: %w", err)
	}
	return d.Grid()
}
