package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/swiftdrop/api/internal/auth"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/middleware"
	"github.com/swiftdrop/api/internal/ws"
)

const maxChatMessageLen = 2000

// ChatStore defines the database methods needed by chat handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ChatStore interface {
	GetStore(ctx context.Context, id uuid.UUID) (database.Store, error)
	ListChatMessages(ctx context.Context, arg database.ListChatMessagesParams) ([]database.ChatMessage, error)
	CreateChatMessage(ctx context.Context, arg database.CreateChatMessageParams) (database.ChatMessage, error)
}

// ChatHandler handles the per-(store, customer) conversation endpoints.
type ChatHandler struct {
	store ChatStore
	hub   *ws.Hub
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(store ChatStore, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{store: store, hub: hub}
}

// RegisterRoutes registers chat endpoints on the given Chi router.
// Expected to be mounted at /stores/{id}/chat.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Send)
}

// --- Request / Response types ---

type sendMessageRequest struct {
	Message string `json:"message"`
	// UserID selects the conversation when a store owner writes; customers
	// always write into their own thread and must omit it.
	UserID string `json:"user_id"`
}

type chatMessageResponse struct {
	ID         uuid.UUID `json:"id"`
	StoreID    uuid.UUID `json:"store_id"`
	UserID     uuid.UUID `json:"user_id"`
	Message    string    `json:"message"`
	SenderType string    `json:"sender_type"`
	CreatedAt  time.Time `json:"created_at"`
}

type chatListResponse struct {
	Messages []chatMessageResponse `json:"messages"`
}

// --- Handlers ---

// List handles GET /stores/{id}/chat, oldest message first. Customers read
// their own thread; store owners pass ?user_id= to pick the conversation.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	storeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	userID, ok := h.resolveThread(w, r, claims, storeID, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	msgs, err := h.store.ListChatMessages(r.Context(), database.ListChatMessagesParams{
		StoreID: storeID,
		UserID:  userID,
	})
	if err != nil {
		log.Printf("ERROR: list chat messages: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := chatListResponse{Messages: make([]chatMessageResponse, len(msgs))}
	for i, m := range msgs {
		resp.Messages[i] = toChatMessageResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /stores/{id}/chat.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	storeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if len(req.Message) > maxChatMessageLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is too long"})
		return
	}

	userID, ok := h.resolveThread(w, r, claims, storeID, req.UserID)
	if !ok {
		return
	}

	senderType := enum.SenderTypeUser
	if claims.Role == enum.RoleStoreOwner {
		senderType = enum.SenderTypeStore
	}

	msg, err := h.store.CreateChatMessage(r.Context(), database.CreateChatMessageParams{
		StoreID:    storeID,
		UserID:     userID,
		Message:    req.Message,
		SenderType: senderType,
	})
	if err != nil {
		log.Printf("ERROR: create chat message: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publishMessage(msg)

	writeJSON(w, http.StatusCreated, toChatMessageResponse(msg))
}

// --- Helpers ---

// resolveThread determines which (store, user) conversation the caller is
// addressing and verifies they are allowed into it. Customers always get
// their own thread. Store owners must own the store and name the customer.
func (h *ChatHandler) resolveThread(w http.ResponseWriter, r *http.Request, claims *auth.Claims, storeID uuid.UUID, rawUserID string) (uuid.UUID, bool) {
	switch claims.Role {
	case enum.RoleCustomer:
		return claims.UserID, true

	case enum.RoleStoreOwner:
		st, err := h.store.GetStore(r.Context(), storeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
				return uuid.Nil, false
			}
			log.Printf("ERROR: get store for chat: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return uuid.Nil, false
		}
		if st.OwnerID != claims.UserID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return uuid.Nil, false
		}
		userID, err := uuid.Parse(rawUserID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
			return uuid.Nil, false
		}
		return userID, true
	}

	writeJSON(w, http.StatusForbidden, map[string]string{"error": "chat is for customers and store owners"})
	return uuid.Nil, false
}

func (h *ChatHandler) publishMessage(msg database.ChatMessage) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(toChatMessageResponse(msg))
	if err != nil {
		log.Printf("ERROR: marshaling chat event: %v", err)
		return
	}
	h.hub.Broadcast(ws.ChatChannel(msg.StoreID, msg.UserID), ws.Event{
		Type:    "chat.message",
		Payload: payload,
	})
}

func toChatMessageResponse(m database.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:         m.ID,
		StoreID:    m.StoreID,
		UserID:     m.UserID,
		Message:    m.Message,
		SenderType: m.SenderType,
		CreatedAt:  m.CreatedAt,
	}
}
