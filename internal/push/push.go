// Package push records in-app notifications and fans them out to registered
// device tokens. Delivery to the platform push gateways is stubbed: sends are
// logged and counted, which keeps the rest of the pipeline (token lookup,
// notification persistence, result reporting) real.
package push

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/swiftdrop/api/internal/database"
)

// TokenStore is the subset of database queries the notifier needs.
// Satisfied by *database.Queries; narrow interface for testability.
type TokenStore interface {
	ListPushTokensByUsers(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error)
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// Message is one notification to deliver.
type Message struct {
	Title string
	Body  string
	Type  string
	Data  map[string]string
}

// Result summarizes a fan-out.
type Result struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type Notifier struct {
	store TokenStore
}

func NewNotifier(store TokenStore) *Notifier {
	return &Notifier{store: store}
}

// Notify persists a notification row per recipient and dispatches the message
// to every device token they have registered. A recipient with no tokens
// counts as failed; everything else counts as successful per token.
func (n *Notifier) Notify(ctx context.Context, userIDs []uuid.UUID, msg Message) (Result, error) {
	var result Result
	if len(userIDs) == 0 {
		return result, nil
	}

	data, err := json.Marshal(msg.Data)
	if err != nil {
		return result, err
	}

	for _, userID := range userIDs {
		if _, err := n.store.CreateNotification(ctx, database.CreateNotificationParams{
			UserID: userID,
			Title:  msg.Title,
			Body:   msg.Body,
			Type:   msg.Type,
			Data:   data,
		}); err != nil {
			log.Printf("ERROR: creating notification for user %s: %v", userID, err)
			result.Failed++
			continue
		}
	}

	tokens, err := n.store.ListPushTokensByUsers(ctx, userIDs)
	if err != nil {
		return result, err
	}

	byUser := make(map[uuid.UUID]int)
	for _, t := range tokens {
		byUser[t.UserID]++
		n.send(t, msg)
		result.Successful++
	}
	for _, userID := range userIDs {
		if byUser[userID] == 0 {
			result.Failed++
		}
	}

	return result, nil
}

// send is the gateway stub. A real deployment would hand the token to FCM or
// APNs here.
func (n *Notifier) send(token database.PushToken, msg Message) {
	log.Printf("push: sending %q to %s token %s...", msg.Title, token.Platform, truncate(token.Token, 12))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
