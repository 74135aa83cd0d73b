package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/middleware"
)

// PushStore defines the database methods needed by push handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PushStore interface {
	UpsertPushToken(ctx context.Context, arg database.UpsertPushTokenParams) (database.PushToken, error)
}

// PushHandler handles device token registration.
type PushHandler struct {
	store PushStore
}

// NewPushHandler creates a new PushHandler.
func NewPushHandler(store PushStore) *PushHandler {
	return &PushHandler{store: store}
}

// RegisterRoutes registers push endpoints. Expected to be mounted at /push.
func (h *PushHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tokens", h.RegisterToken)
}

// --- Request / Response types ---

type registerTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type pushTokenResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handlers ---

// RegisterToken handles POST /push/tokens. Registering the same token twice
// is fine; the row is refreshed in place.
func (h *PushHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}
	if req.Platform != enum.PlatformIOS && req.Platform != enum.PlatformAndroid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "platform must be ios or android"})
		return
	}

	token, err := h.store.UpsertPushToken(r.Context(), database.UpsertPushTokenParams{
		UserID:   claims.UserID,
		Token:    req.Token,
		Platform: req.Platform,
	})
	if err != nil {
		log.Printf("ERROR: upserting push token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, pushTokenResponse{
		ID:        token.ID,
		UserID:    token.UserID,
		Token:     token.Token,
		Platform:  token.Platform,
		CreatedAt: token.CreatedAt,
	})
}
