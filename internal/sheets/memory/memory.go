package memory

import (
	"context"
	"fmt"
	"sync"

	"quartergrid/internal/core"
)

// Store keeps accepted submissions and exported tables in process memory.
type Store struct {
	mu       sync.Mutex
	saved    []*core.Accepted
	sessions []string
	sheets   map[string]core.Table
	state    core.State
	snap     core.Snapshot
}

func New() *Store {
	return &Store{sheets: make(map[string]core.Table)}
}

// Seed sets the grid returned by ReadSnapshot until the next Save.
func (s *Store) Seed(st core.State, snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.snap = st, snap.Clone()
}

// Save stores the accepted grid and returns a synthetic reference.
func (s *Store) Save(_ context.Context, sessionID string, acc *core.Accepted) (string, error) {
	if acc == nil {
		return "", fmt.Errorf("nil submission")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, acc)
	s.sessions = append(s.sessions, sessionID)
	s.state, s.snap = acc.State, acc.Snapshot.Clone()
	return fmt.Sprintf("mem:%d", len(s.saved)), nil
}

// ExportTable replaces the named sheet.
func (s *Store) ExportTable(_ context.Context, sheet string, table core.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet] = table
	return nil
}

// ReadSnapshot returns the last saved or seeded grid.
func (s *Store) ReadSnapshot(_ context.Context) (core.State, core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return core.State{}, nil, fmt.Errorf("no snapshot stored")
	}
	return s.state, s.snap.Clone(), nil
}

// Sheet returns an exported table.
func (s *Store) Sheet(name string) (core.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sheets[name]
	return t, ok
}

// Saved returns the number of stored submissions.
func (s *Store) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
