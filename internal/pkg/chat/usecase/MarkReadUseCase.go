package usecase

import (
	"context"
	"fmt"
	"time"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// MarkReadInput marks a conversation read for one participant.
type MarkReadInput struct {
	ConversationID string
	ReaderID       string
}

// MarkReadUseCase sets the reader's last-read timestamp to now and returns
// the timestamp used, which callers broadcast to the whole room: read state is
// visible to all participants, deliberately not private.
type MarkReadUseCase struct {
	Repo repository.ChatRepository
}

func NewMarkReadUseCase(repo repository.ChatRepository) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (time.Time, error) {
	if in.ConversationID == "" || in.ReaderID == "" {
		return time.Time{}, fmt.Errorf("conversation_id and reader_id are required")
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.ReaderID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return time.Time{}, chat.ErrNoAccess
	}

	readAt := time.Now().UTC()
	if err := uc.Repo.UpdateLastRead(ctx, in.ConversationID, in.ReaderID, readAt); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return readAt, nil
}
