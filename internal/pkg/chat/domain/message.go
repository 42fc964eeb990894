package chat

import (
	"fmt"
	"strings"
	"time"
)

// MaxBodyLen caps a message body after trimming.
const MaxBodyLen = 3000

// Message is one entry in a conversation's ledger. The body mutates on edit
// (with the previous body snapshotted into a MessageEdit) and rows are only
// ever soft-deleted.
type Message struct {
	ID             string     `db:"id" json:"id"`
	ConversationID string     `db:"conversation_id" json:"conversationId"`
	SenderID       string     `db:"sender_id" json:"senderId"`
	Body           string     `db:"body" json:"body"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	EditedAt       *time.Time `db:"edited_at" json:"editedAt,omitempty"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

func (m *Message) IsDeleted() bool {
	return m != nil && m.DeletedAt != nil
}

// MessageEdit snapshots the body a message had *before* an edit was applied.
// Versions start at 1 and are unique per message; together they form an
// append-only audit trail.
type MessageEdit struct {
	MessageID string    `db:"message_id" json:"messageId"`
	Version   int       `db:"version" json:"version"`
	Body      string    `db:"body" json:"body"`
	EditorID  string    `db:"editor_id" json:"editorId"`
	EditedAt  time.Time `db:"edited_at" json:"editedAt"`
}

// ValidateBody trims the body and enforces the 1..MaxBodyLen length window.
// It returns the trimmed body to be stored.
func ValidateBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", fmt.Errorf("%w: body must not be empty", ErrInvalidBody)
	}
	if len(trimmed) > MaxBodyLen {
		return "", fmt.Errorf("%w: body exceeds %d characters", ErrInvalidBody, MaxBodyLen)
	}
	return trimmed, nil
}
