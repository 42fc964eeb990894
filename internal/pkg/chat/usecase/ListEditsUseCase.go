package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// ListEditsInput requests the edit audit trail of one message.
type ListEditsInput struct {
	MessageID string
	ReaderID  string
}

// ListEditsUseCase returns a message's prior bodies in version order. Only
// participants of the owning conversation may read the trail; the trail of a
// deleted message stays readable.
type ListEditsUseCase struct {
	Repo repository.ChatRepository
}

func NewListEditsUseCase(repo repository.ChatRepository) *ListEditsUseCase {
	return &ListEditsUseCase{Repo: repo}
}

func (uc *ListEditsUseCase) Execute(ctx context.Context, in ListEditsInput) ([]chat.MessageEdit, error) {
	if in.MessageID == "" || in.ReaderID == "" {
		return nil, fmt.Errorf("message_id and reader_id are required")
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	ok, err := uc.Repo.IsParticipant(ctx, msg.ConversationID, in.ReaderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, chat.ErrNoAccess
	}

	edits, err := uc.Repo.ListEdits(ctx, in.MessageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return edits, nil
}
