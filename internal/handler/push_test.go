package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/handler"
	"github.com/swiftdrop/api/internal/middleware"
)

// --- Mock PushStore ---

type mockPushStore struct {
	upsertPushTokenFn func(ctx context.Context, arg database.UpsertPushTokenParams) (database.PushToken, error)
}

func (m *mockPushStore) UpsertPushToken(ctx context.Context, arg database.UpsertPushTokenParams) (database.PushToken, error) {
	if m.upsertPushTokenFn != nil {
		return m.upsertPushTokenFn(ctx, arg)
	}
	return database.PushToken{}, pgx.ErrNoRows
}

func setupPushRouter(store *mockPushStore) *chi.Mux {
	h := handler.NewPushHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/push", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestRegisterToken_HappyPath(t *testing.T) {
	claims := customerClaims()

	var captured database.UpsertPushTokenParams
	store := &mockPushStore{
		upsertPushTokenFn: func(ctx context.Context, arg database.UpsertPushTokenParams) (database.PushToken, error) {
			captured = arg
			return database.PushToken{
				ID: uuid.New(), UserID: arg.UserID, Token: arg.Token,
				Platform: arg.Platform, CreatedAt: time.Now(),
			}, nil
		},
	}

	router := setupPushRouter(store)
	rr := doAuthRequest(t, router, http.MethodPost, "/push/tokens", map[string]string{
		"token":    "ExponentPushToken[abc123]",
		"platform": "android",
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rr.Code, rr.Body.String())
	}
	if captured.UserID != claims.UserID {
		t.Errorf("user: got %v, want %v", captured.UserID, claims.UserID)
	}
	if captured.Token != "ExponentPushToken[abc123]" {
		t.Errorf("token: got %s", captured.Token)
	}
}

func TestRegisterToken_BadPlatform(t *testing.T) {
	router := setupPushRouter(&mockPushStore{})
	rr := doAuthRequest(t, router, http.MethodPost, "/push/tokens", map[string]string{
		"token":    "tok",
		"platform": "windows",
	}, customerClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestRegisterToken_MissingToken(t *testing.T) {
	router := setupPushRouter(&mockPushStore{})
	rr := doAuthRequest(t, router, http.MethodPost, "/push/tokens", map[string]string{
		"platform": "ios",
	}, customerClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}
