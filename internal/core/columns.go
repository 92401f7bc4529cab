package core

import (
	"errors"
	"strings"
)

const (
	ColYear Column = "year"
	ColJan  Column = "jan"
	ColFeb  Column = "feb"
	ColMar  Column = "mar"
	ColQ1   Column = "q1"
	ColApr  Column = "apr"
	ColMay  Column = "may"
	ColJun  Column = "jun"
	ColQ2   Column = "q2"
	ColJul  Column = "jul"
	ColAug  Column = "aug"
	ColSep  Column = "sep"
	ColQ3   Column = "q3"
	ColOct  Column = "oct"
	ColNov  Column = "nov"
	ColDec  Column = "dec"
	ColQ4   Column = "q4"
	ColYTD  Column = "ytd"
)

type (
	// Column identifies one of the fixed grid columns.
	Column string

	// ColumnSpec describes a column as presented to a caller.
	//
	// Computed marks the columns the server fills in. Year is flagged
	// computed because it is seeded, but it stays Editable.
	ColumnSpec struct {
		ID       Column
		Label    string
		Computed bool
		Editable bool
	}
)

var ErrUnknownColumn = errors.New("unknown column")

var schema = []ColumnSpec{
	{ID: ColYear, Label: "Year", Computed: true, Editable: true},
	{ID: ColJan, Label: "Jan", Editable: true},
	{ID: ColFeb, Label: "Feb", Editable: true},
	{ID: ColMar, Label: "Mar", Editable: true},
	{ID: ColQ1, Label: "Q1", Computed: true},
	{ID: ColApr, Label: "Apr", Editable: true},
	{ID: ColMay, Label: "May", Editable: true},
	{ID: ColJun, Label: "Jun", Editable: true},
	{ID: ColQ2, Label: "Q2", Computed: true},
	{ID: ColJul, Label: "Jul", Editable: true},
	{ID: ColAug, Label: "Aug", Editable: true},
	{ID: ColSep, Label: "Sep", Editable: true},
	{ID: ColQ3, Label: "Q3", Computed: true},
	{ID: ColOct, Label: "Oct", Editable: true},
	{ID: ColNov, Label: "Nov", Editable: true},
	{ID: ColDec, Label: "Dec", Editable: true},
	{ID: ColQ4, Label: "Q4", Computed: true},
	{ID: ColYTD, Label: "YTD", Computed: true},
}

// Months lists the twelve monthly columns in calendar order.
var Months = [12]Column{
	ColJan, ColFeb, ColMar, ColApr, ColMay, ColJun,
	ColJul, ColAug, ColSep, ColOct, ColNov, ColDec,
}

// Columns returns the display-ordered column list.
func Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(schema))
	copy(out, schema)
	return out
}

// Spec returns the description of a column id.
func (c Column) Spec() (ColumnSpec, bool) {
	for _, s := range schema {
		if s.ID == c {
			return s, true
		}
	}
	return ColumnSpec{}, false
}

// Valid reports whether c is one of the fixed columns.
func (c Column) Valid() bool {
	_, ok := c.Spec()
	return ok
}

// Derived reports whether the column is produced by the aggregator.
// Year is not derived: it is seeded but user supplied.
func (c Column) Derived() bool {
	s, ok := c.Spec()
	return ok && !s.Editable
}

// IsMonth reports whether c is one of the twelve monthly columns.
func (c Column) IsMonth() bool {
	for _, m := range Months {
		if m == c {
			return true
		}
	}
	return false
}

// ParseColumn converts a (case-insensitive) label or id into a Column.
func ParseColumn(s string) (Column, error) {
	s = strings.TrimSpace(s)
	for _, spec := range schema {
		if strings.EqualFold(string(spec.ID), s) || strings.EqualFold(spec.Label, s) {
			return spec.ID, nil
		}
	}
	return "", ErrUnknownColumn
}
