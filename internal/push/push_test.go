package push_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/push"
)

type mockTokenStore struct {
	listPushTokensByUsersFn func(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error)
	createNotificationFn    func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)

	created []database.CreateNotificationParams
}

func (m *mockTokenStore) ListPushTokensByUsers(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error) {
	if m.listPushTokensByUsersFn != nil {
		return m.listPushTokensByUsersFn(ctx, userIDs)
	}
	return nil, nil
}

func (m *mockTokenStore) CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	m.created = append(m.created, arg)
	if m.createNotificationFn != nil {
		return m.createNotificationFn(ctx, arg)
	}
	return database.Notification{UserID: arg.UserID, Title: arg.Title}, nil
}

func TestNotify_CountsPerToken(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()

	store := &mockTokenStore{
		listPushTokensByUsersFn: func(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error) {
			return []database.PushToken{
				{UserID: userA, Token: "tok-a1", Platform: "android"},
				{UserID: userA, Token: "tok-a2", Platform: "ios"},
				{UserID: userB, Token: "tok-b1", Platform: "android"},
			}, nil
		},
	}

	notifier := push.NewNotifier(store)
	result, err := notifier.Notify(context.Background(), []uuid.UUID{userA, userB}, push.Message{
		Title: "Order update",
		Body:  "Your order is on the way",
		Type:  "order_status",
		Data:  map[string]string{"order_id": uuid.NewString()},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if result.Successful != 3 {
		t.Errorf("successful: got %d, want 3", result.Successful)
	}
	if result.Failed != 0 {
		t.Errorf("failed: got %d, want 0", result.Failed)
	}
	if len(store.created) != 2 {
		t.Errorf("notification rows: got %d, want 2", len(store.created))
	}
}

func TestNotify_RecipientWithoutTokensFails(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()

	store := &mockTokenStore{
		listPushTokensByUsersFn: func(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error) {
			return []database.PushToken{
				{UserID: userA, Token: "tok-a1", Platform: "android"},
			}, nil
		},
	}

	notifier := push.NewNotifier(store)
	result, err := notifier.Notify(context.Background(), []uuid.UUID{userA, userB}, push.Message{
		Title: "Order update",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if result.Successful != 1 {
		t.Errorf("successful: got %d, want 1", result.Successful)
	}
	if result.Failed != 1 {
		t.Errorf("failed: got %d, want 1", result.Failed)
	}
}

func TestNotify_NoRecipients(t *testing.T) {
	store := &mockTokenStore{
		listPushTokensByUsersFn: func(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error) {
			t.Fatal("token lookup should be skipped with no recipients")
			return nil, nil
		},
	}

	notifier := push.NewNotifier(store)
	result, err := notifier.Notify(context.Background(), nil, push.Message{Title: "x"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if result.Successful != 0 || result.Failed != 0 {
		t.Errorf("got %+v, want zero result", result)
	}
	if len(store.created) != 0 {
		t.Errorf("notification rows: got %d, want 0", len(store.created))
	}
}

func TestNotify_TokenLookupError(t *testing.T) {
	wantErr := errors.New("connection reset")
	store := &mockTokenStore{
		listPushTokensByUsersFn: func(ctx context.Context, userIDs []uuid.UUID) ([]database.PushToken, error) {
			return nil, wantErr
		},
	}

	notifier := push.NewNotifier(store)
	_, err := notifier.Notify(context.Background(), []uuid.UUID{uuid.New()}, push.Message{Title: "x"})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}
