package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"quartergrid/internal/amqp"
	"quartergrid/internal/core"
)

// SubmissionStore persists accepted grids.
type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sessionID string, acc *core.Accepted) (int64, error)
	Close() error
}

// Publisher announces stored submissions to the export worker.
type Publisher interface {
	PublishSubmissionAccepted(ctx context.Context, msg *amqp.SubmissionAcceptedMessage) error
	Close() error
}

// SubmissionService orchestrates accepted submissions across SQLite and AMQP
type SubmissionService struct {
	storage   SubmissionStore
	publisher Publisher
}

// NewSubmissionService wires a store and an optional publisher. A nil
// publisher disables export notifications; the worker's periodic scan
// still picks submissions up.
func NewSubmissionService(storage SubmissionStore, publisher Publisher) *SubmissionService {
	return &SubmissionService{
		storage:   storage,
		publisher: publisher,
	}
}

// Save implements sheets.SubmissionWriter: it stores the grid locally and
// publishes an export message. Publish failures are logged, not returned.
func (s *SubmissionService) Save(ctx context.Context, sessionID string, acc *core.Accepted) (string, error) {
	if s.storage == nil {
		return "", errors.New("submission storage not configured")
	}
	id, err := s.storage.SaveSubmission(ctx, sessionID, acc)
	if err != nil {
		return "", fmt.Errorf("save submission: %w", err)
	}

	msg := amqp.NewSubmissionAcceptedMessage(id, sessionID, acc.State.Tables, acc.State.Rows)
	if err := s.publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish submission message",
			"submission_id", id, "error", err)
	}

	return strconv.FormatInt(id, 10), nil
}

func (s *SubmissionService) publish(ctx context.Context, msg *amqp.SubmissionAcceptedMessage) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return nil
	}
	return s.publisher.PublishSubmissionAccepted(ctx, msg)
}

// Close closes both storage and AMQP connections
func (s *SubmissionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close submission service: %w", errors.Join(errs...))
	}

	return nil
}
