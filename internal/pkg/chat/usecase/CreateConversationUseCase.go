package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// CreateConversationInput opens (or finds) the thread between an inquirer and
// a listing owner. The inquirer is always the creator.
type CreateConversationInput struct {
	ListingID  string
	InquirerID string
	OwnerID    string
}

// CreateConversationOutput reports whether a new thread was created or an
// existing one reused; creation is idempotent per (listing, inquirer, owner).
type CreateConversationOutput struct {
	Conversation *chat.Conversation
	Created      bool
}

// CreateConversationUseCase handles idempotent conversation bootstrap.
// One class per use case (own file).
type CreateConversationUseCase struct {
	Repo        repository.ChatRepository
	Invalidator ConversationCacheInvalidator // optional
}

func NewCreateConversationUseCase(repo repository.ChatRepository, inv ConversationCacheInvalidator) *CreateConversationUseCase {
	return &CreateConversationUseCase{Repo: repo, Invalidator: inv}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*CreateConversationOutput, error) {
	if in.ListingID == "" || in.InquirerID == "" || in.OwnerID == "" {
		return nil, fmt.Errorf("listing_id, inquirer_id and owner_id are required")
	}
	if in.InquirerID == in.OwnerID {
		return nil, fmt.Errorf("inquirer and owner must differ")
	}

	existing, err := uc.Repo.FindConversationByParties(ctx, in.ListingID, in.InquirerID, in.OwnerID)
	if err == nil {
		return &CreateConversationOutput{Conversation: existing, Created: false}, nil
	}
	if !errors.Is(err, chat.ErrConversationNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	conv := chat.Conversation{
		ListingID: in.ListingID,
		CreatorID: in.InquirerID,
		Status:    chat.ConversationOpen,
		CreatedAt: time.Now().UTC(),
	}
	participants := []chat.Participant{
		{UserID: in.OwnerID, Role: chat.RoleOwner},
		{UserID: in.InquirerID, Role: chat.RoleInquirer},
	}

	created, err := uc.Repo.CreateConversation(ctx, conv, participants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Membership changed; drop any cached conversation-id sets.
	if uc.Invalidator != nil {
		uc.Invalidator.InvalidateConversationIDs(ctx, in.OwnerID, in.InquirerID)
	}

	return &CreateConversationOutput{Conversation: created, Created: true}, nil
}
