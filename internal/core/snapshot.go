package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidValue   = errors.New("invalid value")
	ErrInvalidCellKey = errors.New("invalid cell key")
)

// CellKey addresses a single cell. Row 0 with an empty Column addresses the
// table as a whole.
type CellKey struct {
	Table  int
	Row    int
	Column Column
}

// TableKey addresses a whole table.
func TableKey(table int) CellKey {
	return CellKey{Table: table}
}

// IsTable reports whether the key targets a whole table.
func (k CellKey) IsTable() bool {
	return k.Row == 0 && k.Column == ""
}

// String renders the stable address used by callers to place messages,
// "table-2][3][jan" for a cell and "table-2" for a table.
func (k CellKey) String() string {
	if k.IsTable() {
		return fmt.Sprintf("table-%d", k.Table)
	}
	return fmt.Sprintf("table-%d][%d][%s", k.Table, k.Row, k.Column)
}

// ParseCellKey is the inverse of CellKey.String.
func ParseCellKey(s string) (CellKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "][")
	if len(parts) != 1 && len(parts) != 3 {
		return CellKey{}, ErrInvalidCellKey
	}
	if !strings.HasPrefix(parts[0], "table-") {
		return CellKey{}, ErrInvalidCellKey
	}
	table, err := strconv.Atoi(strings.TrimPrefix(parts[0], "table-"))
	if err != nil || table < 1 {
		return CellKey{}, ErrInvalidCellKey
	}
	if len(parts) == 1 {
		return TableKey(table), nil
	}
	row, err := strconv.Atoi(parts[1])
	if err != nil || row < 1 {
		return CellKey{}, ErrInvalidCellKey
	}
	col, err := ParseColumn(parts[2])
	if err != nil {
		return CellKey{}, fmt.Errorf("%w: %w", ErrInvalidCellKey, err)
	}
	return CellKey{Table: table, Row: row, Column: col}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k CellKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CellKey) UnmarshalText(b []byte) error {
	parsed, err := ParseCellKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Snapshot holds raw cell values as last supplied by the user. A missing
// key means the cell was left empty.
type Snapshot map[CellKey]float64

// Set stores v at the given coordinate.
func (s Snapshot) Set(table, row int, col Column, v float64) {
	s[CellKey{Table: table, Row: row, Column: col}] = v
}

// Get returns the value at a coordinate and whether one was supplied.
func (s Snapshot) Get(table, row int, col Column) (float64, bool) {
	v, ok := s[CellKey{Table: table, Row: row, Column: col}]
	return v, ok
}

// Raw returns a copy without the derived columns, which callers may echo
// back but which never take part in validation.
func (s Snapshot) Raw() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		if k.Column.Derived() {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the keys sorted by table, row and display column order.
func (s Snapshot) Keys() []CellKey {
	keys := make([]CellKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return columnIndex(a.Column) < columnIndex(b.Column)
	})
	return keys
}

func columnIndex(c Column) int {
	for i, s := range schema {
		if s.ID == c {
			return i
		}
	}
	return len(schema)
}

// ParseValue converts user input into a cell value.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted and a
// leading sign is allowed. An empty string reports ok=false: the cell is
// cleared rather than set to zero.
func ParseValue(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, false, ErrInvalidValue
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, ErrInvalidValue
	}
	if err := CheckValue(v); err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// maxMagnitude bounds accepted cell values.
const maxMagnitude = 1e15

// CheckValue rejects NaN, infinities and values beyond ±1e15. Every input
// path that bypasses ParseValue must call it.
func CheckValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > maxMagnitude || v < -maxMagnitude {
		return ErrInvalidValue
	}
	return nil
}
