package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// EditMessageInput carries a body rewrite for an existing message.
type EditMessageInput struct {
	MessageID string
	EditorID  string
	Body      string
}

// EditMessageUseCase rewrites a message body, snapshotting the previous body
// into the edit history. Checks run in a fixed order so the reported error is
// deterministic: message exists, not deleted, editor is the sender, editor
// still has conversation access.
type EditMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewEditMessageUseCase(repo repository.ChatRepository) *EditMessageUseCase {
	return &EditMessageUseCase{Repo: repo}
}

func (uc *EditMessageUseCase) Execute(ctx context.Context, in EditMessageInput) (*chat.Message, error) {
	if in.MessageID == "" || in.EditorID == "" {
		return nil, fmt.Errorf("message_id and editor_id are required")
	}

	body, err := chat.ValidateBody(in.Body)
	if err != nil {
		return nil, err
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg.IsDeleted() {
		return nil, chat.ErrMessageDeleted
	}
	if msg.SenderID != in.EditorID {
		return nil, chat.ErrNotMessageSender
	}

	// Membership can have changed since the message was sent; re-check it for
	// every mutation.
	ok, err := uc.Repo.IsParticipant(ctx, msg.ConversationID, in.EditorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, chat.ErrNoAccess
	}

	updated, err := uc.Repo.ApplyEdit(ctx, in.MessageID, in.EditorID, body, time.Now().UTC())
	if err != nil {
		if errors.Is(err, chat.ErrEditConflict) ||
			errors.Is(err, chat.ErrMessageNotFound) ||
			errors.Is(err, chat.ErrMessageDeleted) ||
			errors.Is(err, chat.ErrNotMessageSender) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return updated, nil
}
