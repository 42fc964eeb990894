package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"rentline/internal/infrastructure/cache/port"
)

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]string)} }

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", port.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

func TestListConversationsCaches(t *testing.T) {
	repo := newFakeRepo()
	convID := seedConversation(repo)
	cache := newFakeCache()
	uc := NewListConversationsUseCase(repo, cache)
	ctx := context.Background()

	ids, err := uc.Execute(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != convID {
		t.Fatalf("ids = %v", ids)
	}

	// Second call must be served from the cache: a failing store proves it.
	repo.failNext = context.DeadlineExceeded
	ids, err = uc.Execute(ctx, "alice")
	if err != nil || len(ids) != 1 {
		t.Errorf("cached list: ids=%v err=%v", ids, err)
	}
	repo.failNext = nil

	uc.InvalidateConversationIDs(ctx, "alice")
	if _, ok := cache.data[conversationIDsKey("alice")]; ok {
		t.Error("invalidate should drop the key")
	}
}

func TestCreateConversationInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	list := NewListConversationsUseCase(repo, cache)
	create := NewCreateConversationUseCase(repo, list)
	ctx := context.Background()

	// Warm an empty set for bob, then create a thread he participates in.
	if _, err := list.Execute(ctx, "bob"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	out, err := create.Execute(ctx, CreateConversationInput{ListingID: "l1", InquirerID: "alice", OwnerID: "bob"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ids, err := list.Execute(ctx, "bob")
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if len(ids) != 1 || ids[0] != out.Conversation.ID {
		t.Errorf("stale cache survived membership change: %v", ids)
	}
}

func TestListConversationsWithoutCache(t *testing.T) {
	repo := newFakeRepo()
	seedConversation(repo)
	uc := NewListConversationsUseCase(repo, nil)

	ids, err := uc.Execute(context.Background(), "bob")
	if err != nil || len(ids) != 1 {
		t.Errorf("nil cache fallback: ids=%v err=%v", ids, err)
	}
}
