package database

import (
	"context"

	"github.com/google/uuid"
)

type UpsertPushTokenParams struct {
	UserID   uuid.UUID
	Token    string
	Platform string
}

// UpsertPushToken registers a device token, refreshing the platform if the
// same token re-registers.
func (q *Queries) UpsertPushToken(ctx context.Context, arg UpsertPushTokenParams) (PushToken, error) {
	var t PushToken
	err := q.db.QueryRow(ctx, `
		INSERT INTO push_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform, updated_at = now()
		RETURNING id, user_id, token, platform, created_at, updated_at`,
		arg.UserID, arg.Token, arg.Platform).
		Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListPushTokensByUsers returns all device tokens registered by the given users.
func (q *Queries) ListPushTokensByUsers(ctx context.Context, userIDs []uuid.UUID) ([]PushToken, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM push_tokens
		WHERE user_id = ANY($1)`,
		userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []PushToken
	for rows.Next() {
		var t PushToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

type CreateNotificationParams struct {
	UserID uuid.UUID
	Title  string
	Body   string
	Type   string
	Data   []byte
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	var n Notification
	err := q.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, body, type, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, title, body, type, data, created_at`,
		arg.UserID, arg.Title, arg.Body, arg.Type, arg.Data).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Type, &n.Data, &n.CreatedAt)
	return n, err
}
