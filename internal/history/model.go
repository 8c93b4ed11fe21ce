package history

import (
	"time"

	"github.com/google/uuid"

	"jobapply-backend/internal/shared/util"
)

// Kind classifies a history entry.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindEmail    Kind = "email"
)

// Limit is the number of entries each log retains.
const Limit = 10

// bodyPreviewChars bounds the body stored with an entry.
const bodyPreviewChars = 200

// Entry is a record of one completed action. Entries are never read back into a pipeline.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId,omitempty"`
	Kind      Kind      `json:"kind"`
	Recipient string    `json:"recipient,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body,omitempty"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewEntry stamps an entry with an ID and time and truncates the body preview.
func NewEntry(sessionID string, kind Kind, action, recipient, subject, body string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Body:      util.Preview(body, bodyPreviewChars),
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
}
