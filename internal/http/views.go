package http

import (
	"errors"
	"time"

	"quartergrid/internal/core"
	"quartergrid/internal/session"
)

type columnView struct {
	ID       core.Column `json:"id"`
	Label    string      `json:"label"`
	Computed bool        `json:"computed"`
	Editable bool        `json:"editable"`
}

type cellView struct {
	Key      string      `json:"key"`
	Column   core.Column `json:"column"`
	Value    *float64    `json:"value"`
	Computed bool        `json:"computed"`
}

type rowView struct {
	Index int        `json:"index"`
	Cells []cellView `json:"cells"`
}

type tableView struct {
	Index int       `json:"index"`
	Key   string    `json:"key"`
	Rows  []rowView `json:"rows"`
}

type gridView struct {
	Tables      int          `json:"tables"`
	Rows        int          `json:"rows"`
	CurrentYear int          `json:"current_year"`
	Columns     []columnView `json:"columns"`
	Grid        []tableView  `json:"grid"`
}

type errorView struct {
	Key     string         `json:"key"`
	Table   int            `json:"table"`
	Row     int            `json:"row,omitempty"`
	Column  core.Column    `json:"column,omitempty"`
	Kind    core.ErrorKind `json:"kind"`
	Message string         `json:"message"`
}

type acceptedView struct {
	Message string   `json:"message"`
	Ref     string   `json:"ref,omitempty"`
	Grid    gridView `json:"grid"`
}

type sessionView struct {
	ID        string        `json:"id"`
	UpdatedAt string        `json:"updated_at"`
	Grid      gridView      `json:"view"`
	Errors    []errorView   `json:"errors,omitempty"`
	Accepted  *acceptedView `json:"accepted,omitempty"`
}

type computeRequest struct {
	Months []*float64 `json:"months"`
}

type computeResponse struct {
	Values  core.Aggregates `json:"values"`
	Display core.Aggregates `json:"display"`
}

type valuesRequest struct {
	Cells []session.CellInput `json:"cells"`
}

func newGridView(g core.Grid) gridView {
	v := gridView{
		Tables:      g.State.Tables,
		Rows:        g.State.Rows,
		CurrentYear: g.State.CurrentYear,
		Columns:     make([]columnView, 0, len(g.Columns)),
		Grid:        make([]tableView, 0, len(g.Tables)),
	}
	for _, c := range g.Columns {
		v.Columns = append(v.Columns, columnView{ID: c.ID, Label: c.Label, Computed: c.Computed, Editable: c.Editable})
	}
	for _, t := range g.Tables {
		tv := tableView{Index: t.Index, Key: core.TableKey(t.Index).String(), Rows: make([]rowView, 0, len(t.Rows))}
		for _, r := range t.Rows {
			rv := rowView{Index: r.Index, Cells: make([]cellView, 0, len(r.Cells))}
			for _, c := range r.Cells {
				cv := cellView{Key: c.Key.String(), Column: c.Key.Column, Computed: c.Computed}
				if !c.Empty {
					value := c.Value
					cv.Value = &value
				}
				rv.Cells = append(rv.Cells, cv)
			}
			tv.Rows = append(tv.Rows, rv)
		}
		v.Grid = append(v.Grid, tv)
	}
	return v
}

func newErrorViews(errs core.ValidationErrors) []errorView {
	out := make([]errorView, 0, len(errs))
	for _, e := range errs {
		out = append(out, errorView{
			Key:     e.Key.String(),
			Table:   e.Key.Table,
			Row:     e.Key.Row,
			Column:  e.Key.Column,
			Kind:    e.Kind,
			Message: e.Message,
		})
	}
	return out
}

func newSessionView(s session.Session) sessionView {
	v := sessionView{
		ID:        s.ID,
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
		Grid:      newGridView(s.Grid()),
	}
	if len(s.Errors) > 0 {
		v.Errors = newErrorViews(s.Errors)
	}
	if s.Accepted != nil {
		v.Accepted = &acceptedView{Message: s.Accepted.Message, Ref: s.Ref, Grid: newGridView(s.Accepted.Grid)}
	}
	return v
}

func asValidationErrors(err error) (core.ValidationErrors, bool) {
	var verrs core.ValidationErrors
	ok := errors.As(err, &verrs)
	return verrs, ok
}
