package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	chat "rentline/internal/pkg/chat/domain"
)

// memRepo is an in-memory chat repository for socket tests.
type memRepo struct {
	mu           sync.Mutex
	participants map[string]map[string]chat.ParticipantRole // convID -> userID -> role
	messages     map[string]*chat.Message
	edits        map[string][]chat.MessageEdit
	lastRead     map[string]time.Time // convID+"/"+userID
	nextID       int
}

func newMemRepo() *memRepo {
	return &memRepo{
		participants: make(map[string]map[string]chat.ParticipantRole),
		messages:     make(map[string]*chat.Message),
		edits:        make(map[string][]chat.MessageEdit),
		lastRead:     make(map[string]time.Time),
	}
}

func (r *memRepo) seedParticipant(conversationID, userID string, role chat.ParticipantRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.participants[conversationID] == nil {
		r.participants[conversationID] = make(map[string]chat.ParticipantRole)
	}
	r.participants[conversationID][userID] = role
}

func (r *memRepo) revokeParticipant(conversationID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants[conversationID], userID)
}

func (r *memRepo) editHistory(messageID string) []chat.MessageEdit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.MessageEdit(nil), r.edits[messageID]...)
}

func (r *memRepo) FindConversationByParties(ctx context.Context, listingID, inquirerID, ownerID string) (*chat.Conversation, error) {
	return nil, chat.ErrConversationNotFound
}

func (r *memRepo) CreateConversation(ctx context.Context, c chat.Conversation, participants []chat.Participant) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = fmt.Sprintf("conv-%d", r.nextID)
	for _, p := range participants {
		if r.participants[c.ID] == nil {
			r.participants[c.ID] = make(map[string]chat.ParticipantRole)
		}
		r.participants[c.ID][p.UserID] = p.Role
	}
	return &c, nil
}

func (r *memRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.participants[conversationID][userID]
	return ok, nil
}

func (r *memRepo) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for convID, members := range r.participants {
		if _, ok := members[userID]; ok {
			ids = append(ids, convID)
		}
	}
	return ids, nil
}

func (r *memRepo) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for userID := range r.participants[conversationID] {
		ids = append(ids, userID)
	}
	return ids, nil
}

func (r *memRepo) InsertMessage(ctx context.Context, conversationID, senderID, body string, at time.Time) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m := &chat.Message{
		ID:             fmt.Sprintf("msg-%d", r.nextID),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      at,
	}
	r.messages[m.ID] = m
	r.lastRead[conversationID+"/"+senderID] = at
	cp := *m
	return &cp, nil
}

func (r *memRepo) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) ApplyEdit(ctx context.Context, messageID, editorID, newBody string, at time.Time) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	if m.DeletedAt != nil {
		return nil, chat.ErrMessageDeleted
	}
	if m.SenderID != editorID {
		return nil, chat.ErrNotMessageSender
	}
	r.edits[messageID] = append(r.edits[messageID], chat.MessageEdit{
		MessageID: messageID,
		Version:   len(r.edits[messageID]) + 1,
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

func (r *memRepo) SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
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

func (r *memRepo) UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRead[conversationID+"/"+userID] = at
	return nil
}

func (r *memRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []chat.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memRepo) ListEdits(ctx context.Context, messageID string) ([]chat.MessageEdit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.MessageEdit(nil), r.edits[messageID]...), nil
}
