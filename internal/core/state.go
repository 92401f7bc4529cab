package core

// State holds the grid dimensions. It is a value: every operation returns
// a new State instead of mutating a shared counter.
type State struct {
	Tables      int `json:"tables" yaml:"tables"`
	Rows        int `json:"rows" yaml:"rows"`
	CurrentYear int `json:"current_year" yaml:"current_year"`
}

// NewState returns the initial 1×1 grid seeded with currentYear.
func NewState(currentYear int) State {
	return State{Tables: 1, Rows: 1, CurrentYear: currentYear}
}

// AddTable appends one empty table sharing the current row count.
func (s State) AddTable() State {
	s.Tables++
	return s
}

// AddRow appends one row to every table.
func (s State) AddRow() State {
	s.Rows++
	return s
}

// DefaultYear is the seed shown in the year cell of a row that has not
// been edited. Row 1 is the current year, row 2 the year before, etc.
func (s State) DefaultYear(row int) int {
	return s.CurrentYear - row + 1
}

// Contains reports whether the coordinate lies inside the grid.
func (s State) Contains(table, row int) bool {
	return table >= 1 && table <= s.Tables && row >= 1 && row <= s.Rows
}

// normalized guards against zero-value states coming from decoders.
func (s State) normalized() State {
	if s.Tables < 1 {
		s.Tables = 1
	}
	if s.Rows < 1 {
		s.Rows = 1
	}
	return s
}
