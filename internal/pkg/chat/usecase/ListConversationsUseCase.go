package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cacheport "rentline/internal/infrastructure/cache/port"
	repository "rentline/internal/pkg/chat/repository/port"
)

// ConversationCacheInvalidator drops cached conversation-id sets when durable
// membership changes.
type ConversationCacheInvalidator interface {
	InvalidateConversationIDs(ctx context.Context, userIDs ...string)
}

// ListConversationsUseCase returns the ids of every conversation a user
// participates in. The result feeds room resync on connect and the presence
// fan-out on online/offline toggles, so it runs on every connect and
// disconnect; a short-TTL cache bounds that read amplification. Access guard
// results are never cached -- only this id listing is.
type ListConversationsUseCase struct {
	Repo  repository.ChatRepository
	Cache cacheport.Cache // optional; nil falls back to the store every time
	TTL   time.Duration
}

func NewListConversationsUseCase(repo repository.ChatRepository, cache cacheport.Cache) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Cache: cache, TTL: 30 * time.Second}
}

func conversationIDsKey(userID string) string {
	return "chat:convids:" + userID
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	if uc.Cache != nil {
		if raw, err := uc.Cache.Get(ctx, conversationIDsKey(userID)); err == nil {
			var ids []string
			if json.Unmarshal([]byte(raw), &ids) == nil {
				return ids, nil
			}
		}
	}

	ids, err := uc.Repo.ListConversationIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Cache != nil {
		if raw, err := json.Marshal(ids); err == nil {
			// Best effort; a failed write just means another store query later.
			_ = uc.Cache.Set(ctx, conversationIDsKey(userID), string(raw), uc.TTL)
		}
	}
	return ids, nil
}

func (uc *ListConversationsUseCase) InvalidateConversationIDs(ctx context.Context, userIDs ...string) {
	if uc.Cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, conversationIDsKey(id))
	}
	_, _ = uc.Cache.Del(ctx, keys...)
}
