// Package session keeps the editing state of grids between requests.
//
// A session owns its State and the latest raw Snapshot; the display grid
// is rebuilt from those two on every read.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quartergrid/internal/cache"
	"quartergrid/internal/core"
	applog "quartergrid/internal/log"
	"quartergrid/internal/sheets"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrOutOfRange      = errors.New("cell outside the grid")
	ErrNotEditable     = errors.New("column is computed")
)

// Session is a copy of one editing session's state.
type Session struct {
	ID        string
	State     core.State
	Snapshot  core.Snapshot
	Errors    core.ValidationErrors
	Accepted  *core.Accepted
	Ref       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Grid rebuilds the display grid.
func (s Session) Grid() core.Grid {
	return core.BuildGrid(s.State, s.Snapshot)
}

// CellInput is one raw value sent by a client. Value uses dot or comma
// decimals; an empty Value clears the cell.
type CellInput struct {
	Table  int    `json:"table" yaml:"table"`
	Row    int    `json:"row" yaml:"row"`
	Column string `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

// InputError reports which cell of a PutValues call was rejected.
type InputError struct {
	Index int
	Cell  CellInput
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cell %d (table %d, row %d, %q): %v", e.Index, e.Cell.Table, e.Cell.Row, e.Cell.Column, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

type entry struct {
	mu sync.Mutex
	s  Session
}

// Store holds sessions in an LRU cache with sliding expiry. Operations on
// one session are serialised; different sessions proceed independently.
type Store struct {
	sessions *cache.LRUCache[*entry]
	writer   sheets.SubmissionWriter
	logger   *applog.Logger
	now      func() time.Time
}

// Options configures a Store.
type Options struct {
	MaxSessions int
	TTL         time.Duration
	Writer      sheets.SubmissionWriter
	Logger      *applog.Logger
}

func NewStore(opts Options) *Store {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 1000
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSession)

	s := &Store{
		sessions: cache.NewLRUCache[*entry](opts.MaxSessions, opts.TTL),
		writer:   opts.Writer,
		logger:   logger,
		now:      time.Now,
	}
	s.sessions.OnEvict(func(id string, _ *entry) {
		logger.Debug("Session evicted", applog.FieldSession, id)
	})
	return s
}

// Cache exposes the backing cache for periodic cleanup.
func (s *Store) Cache() cache.Cleaner {
	return s.sessions
}

// Create opens a 1×1 session seeded with the current year.
func (s *Store) Create(ctx context.Context) Session {
	now := s.now()
	e := &entry{s: Session{
		ID:        uuid.NewString(),
		State:     core.NewState(now.Year()),
		Snapshot:  core.Snapshot{},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.sessions.Set(e.s.ID, e)
	s.logger.InfoContext(ctx, "Session created", applog.FieldSession, e.s.ID)
	return copySession(e.s)
}

// Open starts a session from an existing grid, e.g. one read back from a
// spreadsheet or a workbook file.
func (s *Store) Open(ctx context.Context, st core.State, snap core.Snapshot) Session {
	sess := s.Create(ctx)
	out, _ := s.update(sess.ID, func(x *Session) error {
		x.State = st
		x.Snapshot = snap.Raw()
		return nil
	})
	return out
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (Session, error) {
	e, ok := s.sessions.Get(id)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySession(e.s), nil
}

// AddTable appends an empty table. It never validates.
func (s *Store) AddTable(ctx context.Context, id string) (Session, error) {
	out, err := s.update(id, func(x *Session) error {
		x.State = x.State.AddTable()
		return nil
	})
	if err == nil {
		s.logger.InfoContext(ctx, "Table added", applog.NewFields().WithSession(id).WithGrid(out.State.Tables, out.State.Rows).ToSlice()...)
	}
	return out, err
}

// AddRow appends a row to every table. It never validates.
func (s *Store) AddRow(ctx context.Context, id string) (Session, error) {
	out, err := s.update(id, func(x *Session) error {
		x.State = x.State.AddRow()
		return nil
	})
	if err == nil {
		s.logger.InfoContext(ctx, "Row added", applog.NewFields().WithSession(id).WithGrid(out.State.Tables, out.State.Rows).ToSlice()...)
	}
	return out, err
}

// PutValues replaces the session's raw snapshot with cells. The whole call
// is rejected, leaving the session untouched, if any cell is invalid.
func (s *Store) PutValues(ctx context.Context, id string, cells []CellInput) (Session, error) {
	return s.update(id, func(x *Session) error {
		snap, err := ParseCells(x.State, cells)
		if err != nil {
			return err
		}
		x.Snapshot = snap
		return nil
	})
}

// ParseCells converts client input into a snapshot for the given grid.
func ParseCells(st core.State, cells []CellInput) (core.Snapshot, error) {
	snap := make(core.Snapshot, len(cells))
	for i, c := range cells {
		col, err := core.ParseColumn(c.Column)
		if err != nil {
			return nil, &InputError{Index: i, Cell: c, Err: err}
		}
		if col.Derived() {
			return nil, &InputError{Index: i, Cell: c, Err: ErrNotEditable}
		}
		if !st.Contains(c.Table, c.Row) {
			return nil, &InputError{Index: i, Cell: c, Err: ErrOutOfRange}
		}
		v, ok, err := core.ParseValue(c.Value)
		if err != nil {
			return nil, &InputError{Index: i, Cell: c, Err: err}
		}
		if ok {
			snap.Set(c.Table, c.Row, col, v)
		}
	}
	return snap, nil
}

// Submit validates the session. When valid, the accepted grid is handed to
// the configured writer and its reference recorded. When invalid, the
// returned error is a core.ValidationErrors, any earlier accepted result is
// dropped, and state and snapshot are kept so the user can correct them.
func (s *Store) Submit(ctx context.Context, id string) (Session, error) {
	e, ok := s.sessions.Get(id)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	acc, err := core.Submit(e.s.State, e.s.Snapshot)
	if err != nil {
		var verrs core.ValidationErrors
		if errors.As(err, &verrs) {
			e.s.Errors = verrs
			e.s.Accepted, e.s.Ref = nil, ""
			e.s.UpdatedAt = s.now()
			applog.NewStructuredLogger(s.logger).LogSubmissionRejected(ctx, id, len(verrs))
		}
		return copySession(e.s), err
	}

	ref := ""
	if s.writer != nil {
		ref, err = s.writer.Save(ctx, id, acc)
		if err != nil {
			return copySession(e.s), fmt.Errorf("save submission: %w", err)
		}
	}

	e.s.Errors = nil
	e.s.Accepted = acc
	e.s.Ref = ref
	e.s.UpdatedAt = s.now()
	applog.NewStructuredLogger(s.logger).LogSubmissionAccepted(ctx, id, acc.State.Tables, acc.State.Rows, ref)
	return copySession(e.s), nil
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.sessions.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.sessions.Size()
}

func (s *Store) update(id string, fn func(*Session) error) (Session, error) {
	e, ok := s.sessions.Get(id)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next := copySession(e.s)
	if err := fn(&next); err != nil {
		return copySession(e.s), err
	}
	next.Errors = nil
	next.UpdatedAt = s.now()
	e.s = next
	return copySession(e.s), nil
}

func copySession(s Session) Session {
	s.Snapshot = s.Snapshot.Clone()
	if s.Errors != nil {
		s.Errors = append(core.ValidationErrors(nil), s.Errors...)
	}
	return s
}
