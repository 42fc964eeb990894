package usecase

import (
	"context"
	"fmt"
	"time"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// SendMessageInput carries the data needed to append a new message.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Body           string
}

// SendMessageUseCase appends to the conversation ledger. The access guard runs
// immediately before the insert; the insert itself also bumps the sender's
// last-read timestamp.
type SendMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewSendMessageUseCase(repo repository.ChatRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("conversation_id and sender_id are required")
	}

	body, err := chat.ValidateBody(in.Body)
	if err != nil {
		return nil, err
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, chat.ErrNoAccess
	}

	msg, err := uc.Repo.InsertMessage(ctx, in.ConversationID, in.SenderID, body, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msg, nil
}
