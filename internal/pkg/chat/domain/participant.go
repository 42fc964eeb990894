package chat

import "time"

// ParticipantRole expresses the role within a conversation.
type ParticipantRole string

const (
	RoleOwner    ParticipantRole = "OWNER"
	RoleInquirer ParticipantRole = "INQUIRER"
	RoleAdmin    ParticipantRole = "ADMIN"
)

// Participant is the durable (conversation, user) authorization record.
// Its existence is the single source of truth for conversation access; room
// membership and every mutating operation derive from it.
// Primary key: (ConversationID, UserID).
type Participant struct {
	ConversationID string          `db:"conversation_id" json:"conversationId"`
	UserID         string          `db:"user_id" json:"userId"`
	Role           ParticipantRole `db:"role" json:"role"`
	LastReadAt     *time.Time      `db:"last_read_at" json:"lastReadAt,omitempty"`
}
