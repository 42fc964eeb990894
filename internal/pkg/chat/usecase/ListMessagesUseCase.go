package usecase

import (
	"context"
	"fmt"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// ListMessagesInput pages through a conversation's ledger.
type ListMessagesInput struct {
	ConversationID string
	ReaderID       string
	Limit          int
	Offset         int
}

// ListMessagesUseCase fetches message history, guarded like every other read
// of conversation state.
type ListMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewListMessagesUseCase(repo repository.ChatRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) ([]chat.Message, error) {
	if in.ConversationID == "" || in.ReaderID == "" {
		return nil, fmt.Errorf("conversation_id and reader_id are required")
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.ReaderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, chat.ErrNoAccess
	}

	msgs, err := uc.Repo.ListMessages(ctx, in.ConversationID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
