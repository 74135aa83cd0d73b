package database

import (
	"context"

	"github.com/google/uuid"
)

const chatMessageColumns = `id, store_id, user_id, message, sender_type, created_at`

type ListChatMessagesParams struct {
	StoreID uuid.UUID
	UserID  uuid.UUID
}

// ListChatMessages returns the (store, user) channel history oldest first.
func (q *Queries) ListChatMessages(ctx context.Context, arg ListChatMessagesParams) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+chatMessageColumns+`
		FROM chat_messages
		WHERE store_id = $1 AND user_id = $2
		ORDER BY created_at ASC`,
		arg.StoreID, arg.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.StoreID, &m.UserID, &m.Message, &m.SenderType, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type CreateChatMessageParams struct {
	StoreID    uuid.UUID
	UserID     uuid.UUID
	Message    string
	SenderType string
}

func (q *Queries) CreateChatMessage(ctx context.Context, arg CreateChatMessageParams) (ChatMessage, error) {
	var m ChatMessage
	err := q.db.QueryRow(ctx, `
		INSERT INTO chat_messages (store_id, user_id, message, sender_type)
		VALUES ($1, $2, $3, $4)
		RETURNING `+chatMessageColumns,
		arg.StoreID, arg.UserID, arg.Message, arg.SenderType).
		Scan(&m.ID, &m.StoreID, &m.UserID, &m.Message, &m.SenderType, &m.CreatedAt)
	return m, err
}
