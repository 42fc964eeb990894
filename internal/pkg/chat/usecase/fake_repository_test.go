package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	chat "rentline/internal/pkg/chat/domain"
)

// fakeChatRepository is an in-memory stand-in for the pg adapter, close enough
// to exercise every usecase path including edit versioning and soft deletes.
type fakeChatRepository struct {
	mu            sync.Mutex
	conversations map[string]*chat.Conversation
	participants  map[string]*chat.Participant // key convID+"/"+userID
	messages      map[string]*chat.Message
	edits         map[string][]chat.MessageEdit
	nextID        int

	failNext      error // returned once by the next repository call
	conflictOnEdit bool // simulate a unique (message_id, version) violation
}

func newFakeRepo() *fakeChatRepository {
	return &fakeChatRepository{
		conversations: make(map[string]*chat.Conversation),
		participants:  make(map[string]*chat.Participant),
		messages:      make(map[string]*chat.Message),
		edits:         make(map[string][]chat.MessageEdit),
	}
}

func (f *fakeChatRepository) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeChatRepository) checkFail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func pKey(conversationID, userID string) string { return conversationID + "/" + userID }

// seed helpers used by tests

func (f *fakeChatRepository) addParticipant(conversationID, userID string, role chat.ParticipantRole) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.participants[pKey(conversationID, userID)] = &chat.Participant{
		ConversationID: conversationID, UserID: userID, Role: role,
	}
}

func (f *fakeChatRepository) removeParticipant(conversationID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.participants, pKey(conversationID, userID))
}

// port implementation

func (f *fakeChatRepository) FindConversationByParties(ctx context.Context, listingID, inquirerID, ownerID string) (*chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	for _, c := range f.conversations {
		if c.ListingID != listingID {
			continue
		}
		if f.participants[pKey(c.ID, inquirerID)] != nil && f.participants[pKey(c.ID, ownerID)] != nil {
			cp := *c
			return &cp, nil
		}
	}
	return nil, chat.ErrConversationNotFound
}

func (f *fakeChatRepository) CreateConversation(ctx context.Context, c chat.Conversation, participants []chat.Participant) (*chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	c.ID = f.genID()
	f.conversations[c.ID] = &c
	for _, p := range participants {
		p.ConversationID = c.ID
		pc := p
		f.participants[pKey(c.ID, p.UserID)] = &pc
	}
	cp := c
	return &cp, nil
}

func (f *fakeChatRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return false, err
	}
	return f.participants[pKey(conversationID, userID)] != nil, nil
}

func (f *fakeChatRepository) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range f.participants {
		if p.UserID == userID {
			ids = append(ids, p.ConversationID)
		}
	}
	return ids, nil
}

func (f *fakeChatRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range f.participants {
		if p.ConversationID == conversationID {
			ids = append(ids, p.UserID)
		}
	}
	return ids, nil
}

func (f *fakeChatRepository) InsertMessage(ctx context.Context, conversationID, senderID, body string, at time.Time) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	m := &chat.Message{
		ID:             f.genID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      at,
	}
	f.messages[m.ID] = m
	if p := f.participants[pKey(conversationID, senderID)]; p != nil {
		t := at
		p.LastReadAt = &t
	}
	cp := *m
	return &cp, nil
}

func (f *fakeChatRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	m, ok := f.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeChatRepository) ApplyEdit(ctx context.Context, messageID, editorID, newBody string, at time.Time) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	if f.conflictOnEdit {
		return nil, chat.ErrEditConflict
	}
	m, ok := f.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	if m.DeletedAt != nil {
		return nil, chat.ErrMessageDeleted
	}
	if m.SenderID != editorID {
		return nil, chat.ErrNotMessageSender
	}
	version := len(f.edits[messageID]) + 1
	f.edits[messageID] = append(f.edits[messageID], chat.MessageEdit{
		MessageID: messageID,
		Version:   version,
		Body:      m.Body,
		EditorID:  editorID,
		EditedAt:  at,
	})
	m.Body = newBody
	t := at
	m.EditedAt = &t
	cp := *m
	return &cp, nil
}

func (f *fakeChatRepository) SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	m, ok := f.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	if m.DeletedAt != nil {
		return nil, chat.ErrMessageDeleted
	}
	t := at
	m.DeletedAt = &t
	cp := *m
	return &cp, nil
}

func (f *fakeChatRepository) UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return err
	}
	p := f.participants[pKey(conversationID, userID)]
	if p == nil {
		return chat.ErrNoAccess
	}
	t := at
	p.LastReadAt = &t
	return nil
}

func (f *fakeChatRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	var out []chat.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeChatRepository) ListEdits(ctx context.Context, messageID string) ([]chat.MessageEdit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkFail(); err != nil {
		return nil, err
	}
	return append([]chat.MessageEdit(nil), f.edits[messageID]...), nil
}
