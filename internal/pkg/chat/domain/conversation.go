package chat

import "time"

// ConversationStatus follows the moderation workflow of a listing thread.
type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "OPEN"
	ConversationClosed ConversationStatus = "CLOSED"
	ConversationSpam   ConversationStatus = "SPAM"
)

// Conversation is a chat thread tied to one listing. At most one exists per
// (listing, inquirer, owner) triple; creation is idempotent by lookup.
type Conversation struct {
	ID        string             `db:"id" json:"id"`
	ListingID string             `db:"listing_id" json:"listingId"`
	CreatorID string             `db:"creator_id" json:"creatorId"`
	Status    ConversationStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"createdAt"`
	ClosedAt  *time.Time         `db:"closed_at" json:"closedAt,omitempty"`
}
