package core

// MsgValid is the status reported with an accepted submission.
const MsgValid = "Valid"

// Accepted is the final computed grid of a valid submission. Derived
// values are kept unrounded.
type Accepted struct {
	State    State
	Snapshot Snapshot
	Grid     Grid
	Message  string
}

// Submit validates the snapshot and, when it passes, computes the final
// grid. On failure the returned error is a ValidationErrors and the caller
// keeps its state and snapshot untouched.
func Submit(st State, snap Snapshot) (*Accepted, error) {
	if errs := Validate(st, snap); len(errs) > 0 {
		return nil, errs
	}
	st = st.normalized()
	raw := snap.Raw()
	return &Accepted{
		State:    st,
		Snapshot: raw,
		Grid:     buildGrid(st, raw, false),
		Message:  MsgValid,
	}, nil
}

// Cells returns every non-empty cell of the accepted grid, table by table
// in display order.
func (a *Accepted) Cells() []Cell {
	var out []Cell
	for _, t := range a.Grid.Tables {
		for _, r := range t.Rows {
			for _, c := range r.Cells {
				if !c.Empty {
					out = append(out, c)
				}
			}
		}
	}
	return out
}
