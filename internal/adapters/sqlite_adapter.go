package adapters

import (
	"context"

	"quartergrid/internal/core"
	"quartergrid/internal/services"
	"quartergrid/internal/storage"
)

// SQLiteAdapter adapts SQLiteRepository and SubmissionService to the
// sheets.* ports, so the HTTP layer works unchanged on the SQLite + AMQP
// backend.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.SubmissionService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.SubmissionService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// Save implements sheets.SubmissionWriter
func (a *SQLiteAdapter) Save(ctx context.Context, sessionID string, acc *core.Accepted) (string, error) {
	return a.service.Save(ctx, sessionID, acc)
}

// ReadSnapshot implements sheets.SnapshotReader with the latest submission.
func (a *SQLiteAdapter) ReadSnapshot(ctx context.Context) (core.State, core.Snapshot, error) {
	sub, err := a.storage.LatestSubmission(ctx)
	if err != nil {
		return core.State{}, nil, err
	}
	return sub.Accepted.State, sub.Accepted.Snapshot.Clone(), nil
}

// Ping reports database health for readiness checks.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
