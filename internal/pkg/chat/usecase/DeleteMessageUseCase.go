package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// DeleteMessageInput identifies the message to soft-delete.
type DeleteMessageInput struct {
	MessageID string
	DeleterID string
}

// DeleteMessageOutput distinguishes a fresh deletion from the idempotent
// repeat case. AlreadyDeleted deletions carry no Message payload; the body of
// a deleted message is never re-broadcast.
type DeleteMessageOutput struct {
	Message        *chat.Message
	AlreadyDeleted bool
}

// DeleteMessageUseCase soft-deletes a message. Deleting twice is a successful
// no-op, not an error. Check order matches the edit path: exists, deleted
// (short-circuits to the no-op), sender, access.
type DeleteMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewDeleteMessageUseCase(repo repository.ChatRepository) *DeleteMessageUseCase {
	return &DeleteMessageUseCase{Repo: repo}
}

func (uc *DeleteMessageUseCase) Execute(ctx context.Context, in DeleteMessageInput) (*DeleteMessageOutput, error) {
	if in.MessageID == "" || in.DeleterID == "" {
		return nil, fmt.Errorf("message_id and deleter_id are required")
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg.IsDeleted() {
		return &DeleteMessageOutput{AlreadyDeleted: true}, nil
	}
	if msg.SenderID != in.DeleterID {
		return nil, chat.ErrNotMessageSender
	}

	ok, err := uc.Repo.IsParticipant(ctx, msg.ConversationID, in.DeleterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, chat.ErrNoAccess
	}

	deleted, err := uc.Repo.SoftDeleteMessage(ctx, in.MessageID, time.Now().UTC())
	if err != nil {
		// A concurrent delete won the race; same idempotent outcome.
		if errors.Is(err, chat.ErrMessageDeleted) {
			return &DeleteMessageOutput{AlreadyDeleted: true}, nil
		}
		if errors.Is(err, chat.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &DeleteMessageOutput{Message: deleted}, nil
}
