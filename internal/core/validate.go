package core

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	EmptyTable     ErrorKind = "empty_table"
	BrokenSequence ErrorKind = "broken_sequence"
	ShapeMismatch  ErrorKind = "shape_mismatch"
)

const (
	MsgEmptyTable     = "Table should not be empty."
	MsgBrokenSequence = "Table should not contain breaks."
	MsgShapeMismatch  = "Tables should be similar."
)

// ValidationError is one addressed validation failure. EmptyTable errors
// carry a table-level key.
type ValidationError struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Key     CellKey   `json:"key" yaml:"key"`
	Message string    `json:"message" yaml:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// ValidationErrors is the complete, ordered result of a failed validation.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	}
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors:\n- %s", len(v), strings.Join(msgs, "\n- "))
}

// ByKey returns the error addressed to key, if any.
func (v ValidationErrors) ByKey(key CellKey) (ValidationError, bool) {
	for _, e := range v {
		if e.Key == key {
			return e, true
		}
	}
	return ValidationError{}, false
}

// Count returns the number of errors of the given kind.
func (v ValidationErrors) Count(kind ErrorKind) int {
	n := 0
	for _, e := range v {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// collector keeps the first error set on each address.
type collector struct {
	errs ValidationErrors
	seen map[CellKey]struct{}
}

func (c *collector) add(kind ErrorKind, key CellKey, msg string) {
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.errs = append(c.errs, ValidationError{Kind: kind, Key: key, Message: msg})
}

// Validate checks the monthly cells of every table. Derived columns and
// the year are ignored; a value of 0 counts as empty.
//
// Cells are walked oldest year first (highest row index down to row 1) and
// January to December within a row. Table 1 is the reference every other
// table's shape is compared against. Every failure is collected; an empty
// result means the snapshot is valid.
func Validate(st State, snap Snapshot) ValidationErrors {
	st = st.normalized()
	snap = snap.Raw()
	c := &collector{seen: make(map[CellKey]struct{})}

	for t := 1; t <= st.Tables; t++ {
		seq := flatten(st, t)

		if t != 1 {
			for _, key := range seq {
				ref := CellKey{Table: 1, Row: key.Row, Column: key.Column}
				if isEmpty(snap, key) == isEmpty(snap, ref) {
					continue
				}
				for other := 1; other <= st.Tables; other++ {
					c.add(ShapeMismatch, CellKey{Table: other, Row: key.Row, Column: key.Column}, MsgShapeMismatch)
				}
			}
		}

		first, last := -1, -1
		for i, key := range seq {
			if isEmpty(snap, key) {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
		}
		if first < 0 {
			c.add(EmptyTable, TableKey(t), MsgEmptyTable)
			continue
		}
		for _, key := range seq[first : last+1] {
			if isEmpty(snap, key) {
				c.add(BrokenSequence, key, MsgBrokenSequence)
			}
		}
	}
	return c.errs
}

// flatten lists the monthly cell keys of one table in validation order.
func flatten(st State, table int) []CellKey {
	seq := make([]CellKey, 0, st.Rows*len(Months))
	for r := st.Rows; r >= 1; r-- {
		for _, m := range Months {
			seq = append(seq, CellKey{Table: table, Row: r, Column: m})
		}
	}
	return seq
}

func isEmpty(snap Snapshot, key CellKey) bool {
	v, ok := snap[key]
	return !ok || v == 0
}
