package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SubmissionAcceptedMessage announces a stored submission ready for export.
// It carries only identifiers; the worker loads the grid from the database.
type SubmissionAcceptedMessage struct {
	SubmissionID int64     `json:"submission_id"`
	SessionID    string    `json:"session_id"`
	Tables       int       `json:"tables"`
	Rows         int       `json:"rows"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewSubmissionAcceptedMessage creates a message stamped with the current time
func NewSubmissionAcceptedMessage(id int64, sessionID string, tables, rows int) *SubmissionAcceptedMessage {
	return &SubmissionAcceptedMessage{
		SubmissionID: id,
		SessionID:    sessionID,
		Tables:       tables,
		Rows:         rows,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SubmissionAcceptedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SubmissionAcceptedMessageFromJSON parses and checks a message body
func SubmissionAcceptedMessageFromJSON(data []byte) (*SubmissionAcceptedMessage, error) {
	var msg SubmissionAcceptedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SubmissionID <= 0 {
		return nil, errors.New("message has no submission id")
	}
	return &msg, nil
}
