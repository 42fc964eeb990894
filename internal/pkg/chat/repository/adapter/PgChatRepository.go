package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "rentline/internal/pkg/chat/domain"
)

const uniqueViolation = "23505"

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const conversationColumns = "id::text, listing_id::text, creator_id::text, status, created_at, closed_at"

func (r *PgChatRepository) FindConversationByParties(ctx context.Context, listingID, inquirerID, ownerID string) (*chat.Conversation, error) {
	var c chat.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM chat.conversation c
		WHERE listing_id = $1::uuid
		  AND EXISTS (SELECT 1 FROM chat.participant p WHERE p.conversation_id = c.id AND p.user_id = $2::uuid)
		  AND EXISTS (SELECT 1 FROM chat.participant p WHERE p.conversation_id = c.id AND p.user_id = $3::uuid)
		LIMIT 1
	`, listingID, inquirerID, ownerID).Scan(&c.ID, &c.ListingID, &c.CreatorID, &c.Status, &c.CreatedAt, &c.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c chat.Conversation, participants []chat.Participant) (*chat.Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (listing_id, creator_id, status, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING id::text
	`, c.ListingID, c.CreatorID, c.Status, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return nil, err
	}

	for _, p := range participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat.participant (conversation_id, user_id, role)
			VALUES ($1::uuid, $2::uuid, $3)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
		`, c.ID, p.UserID, p.Role)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgChatRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.participant
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid
		)
	`, conversationID, userID).Scan(&exists)
	return exists, err
}

func (r *PgChatRepository) ListConversationIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id::text FROM chat.participant WHERE user_id = $1::uuid
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgChatRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id::text FROM chat.participant WHERE conversation_id = $1::uuid
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const messageColumns = "id::text, conversation_id::text, sender_id::text, body, created_at, edited_at, deleted_at"

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var m chat.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt, &m.EditedAt, &m.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgChatRepository) InsertMessage(ctx context.Context, conversationID, senderID, body string, at time.Time) (*chat.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	msg, err := scanMessage(tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, body, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING `+messageColumns+`
	`, conversationID, senderID, body, at))
	if err != nil {
		return nil, err
	}

	// Sending implies having read the conversation up to now.
	_, err = tx.Exec(ctx, `
		UPDATE chat.participant SET last_read_at = $3
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, senderID, at)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *PgChatRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM chat.message WHERE id = $1::uuid
	`, messageID))
}

func (r *PgChatRepository) ApplyEdit(ctx context.Context, messageID, editorID, newBody string, at time.Time) (*chat.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Re-check preconditions inside the transaction; the usecase checked them
	// already but participant and message state can move underneath it.
	current, err := scanMessage(tx.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM chat.message WHERE id = $1::uuid
	`, messageID))
	if err != nil {
		return nil, err
	}
	if current.IsDeleted() {
		return nil, chat.ErrMessageDeleted
	}
	if current.SenderID != editorID {
		return nil, chat.ErrNotMessageSender
	}

	// Read max, write max+1. Two concurrent edits can compute the same next
	// version; the unique (message_id, version) constraint turns that race
	// into a retryable conflict instead of silent corruption.
	var version int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM chat.message_edit WHERE message_id = $1::uuid
	`, messageID).Scan(&version)
	if err != nil {
		return nil, err
	}
	version++

	_, err = tx.Exec(ctx, `
		INSERT INTO chat.message_edit (message_id, version, body, editor_id, edited_at)
		VALUES ($1::uuid, $2, $3, $4::uuid, $5)
	`, messageID, version, current.Body, editorID, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, chat.ErrEditConflict
		}
		return nil, err
	}

	msg, err := scanMessage(tx.QueryRow(ctx, `
		UPDATE chat.message SET body = $2, edited_at = $3
		WHERE id = $1::uuid AND deleted_at IS NULL
		RETURNING `+messageColumns+`
	`, messageID, newBody, at))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *PgChatRepository) SoftDeleteMessage(ctx context.Context, messageID string, at time.Time) (*chat.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, `
		UPDATE chat.message SET deleted_at = $2
		WHERE id = $1::uuid AND deleted_at IS NULL
		RETURNING `+messageColumns+`
	`, messageID, at))
	if errors.Is(err, chat.ErrMessageNotFound) {
		// Row exists but was already deleted, or is genuinely absent.
		existing, getErr := r.GetMessage(ctx, messageID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.IsDeleted() {
			return nil, chat.ErrMessageDeleted
		}
		return nil, chat.ErrMessageNotFound
	}
	return msg, err
}

func (r *PgChatRepository) UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.participant SET last_read_at = $3
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNoAccess
	}
	return nil
}

func (r *PgChatRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt, &m.EditedAt, &m.DeletedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgChatRepository) ListEdits(ctx context.Context, messageID string) ([]chat.MessageEdit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT message_id::text, version, body, editor_id::text, edited_at
		FROM chat.message_edit
		WHERE message_id = $1::uuid
		ORDER BY version
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edits []chat.MessageEdit
	for rows.Next() {
		var e chat.MessageEdit
		if err := rows.Scan(&e.MessageID, &e.Version, &e.Body, &e.EditorID, &e.EditedAt); err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}
