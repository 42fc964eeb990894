package repository

import (
	"context"
	"time"

	chat "rentline/internal/pkg/chat/domain"
)

// ChatRepository defines persistence operations for the chat domain.
// Implementations map store-level failures onto the domain sentinels
// (chat.ErrMessageNotFound, chat.ErrEditConflict, ...) where the contract
// says so, and return raw errors for everything else.
type ChatRepository interface {
	// FindConversationByParties locates the unique conversation for a
	// (listing, inquirer, owner) triple. Returns chat.ErrConversationNotFound
	// when no such thread exists yet.
	FindConversationByParties(ctx context.Context, listingID, inquirerID, ownerID string) (*chat.Conversation, error)

	// CreateConversation persists the conversation and its participants in
	// one transaction and returns the stored conversation.
	CreateConversation(ctx context.Context, c chat.Conversation, participants []chat.Participant) (*chat.Conversation, error)

	// IsParticipant is the access guard: an existence check on the durable
	// participant relation. Results must never be cached by callers.
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)

	// ListConversationIDs returns ids of every conversation the user
	// participates in.
	ListConversationIDs(ctx context.Context, userID string) ([]string, error)

	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)

	// InsertMessage appends a message and bumps the sender's last-read
	// timestamp in the same transaction (sending implies having read).
	InsertMessage(ctx context.Context, conversationID, senderID, body string, at time.Time) (*chat.Message, error)

	// GetMessage returns chat.ErrMessageNotFound when the row is absent.
	GetMessage(ctx context.Context, messageID string) (*chat.Message, error)

	// ApplyEdit snapshots the current body as version 1+max(version), then
	// updates body and edited_at, all in one transaction. A version collision
	// from a concurrent edit surfaces as chat.ErrEditConflict. Preconditions
	// (exists, not deleted, sender matches) are re-checked inside the
	// transaction to close the check-then-act gap.
	ApplyEdit(ctx context.Context, messageID, editorID, newBody string, at time.Time) (*chat.Message, error)

	// SoftDeleteMessage sets deleted_at, retaining the row. Deleting an
	// already-deleted message returns chat.ErrMessageDeleted so callers can
	// treat it as an idempotent no-op.
	SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) (*chat.Message, error)

	// UpdateLastRead sets the reader's last-read timestamp on the participant
	// row.
	UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error

	// ListMessages returns a page of the conversation's ledger ordered by
	// creation time with primary-key tiebreak.
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error)

	// ListEdits returns the audit trail for a message in version order.
	ListEdits(ctx context.Context, messageID string) ([]chat.MessageEdit, error)
}
