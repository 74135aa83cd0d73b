package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/middleware"
	"github.com/swiftdrop/api/internal/ws"
)

// WSStore defines the database methods needed to authorize subscriptions.
// Satisfied by *database.Queries; narrow interface for testability.
type WSStore interface {
	GetStore(ctx context.Context, id uuid.UUID) (database.Store, error)
}

// WSHandler upgrades authorized clients onto hub channels.
type WSHandler struct {
	store WSStore
	hub   *ws.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(store WSStore, hub *ws.Hub) *WSHandler {
	return &WSHandler{store: store, hub: hub}
}

// RegisterRoutes registers websocket endpoints. Expected to be mounted at
// /ws behind authentication.
func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.SubscribeOrders)
	r.Get("/deliveries", h.SubscribeDeliveries)
	r.Get("/chat/{storeID}", h.SubscribeChat)
}

// SubscribeOrders handles GET /ws/orders. The channel follows the caller's
// role: customers watch their own orders, store owners watch a store they
// own (selected with ?store_id=).
func (h *WSHandler) SubscribeOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	switch claims.Role {
	case enum.RoleCustomer:
		ws.Subscribe(h.hub, ws.CustomerOrdersChannel(claims.UserID), w, r)

	case enum.RoleStoreOwner:
		storeID, err := uuid.Parse(r.URL.Query().Get("store_id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "store_id is required"})
			return
		}
		st, err := h.store.GetStore(r.Context(), storeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
				return
			}
			log.Printf("ERROR: get store for subscription: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if st.OwnerID != claims.UserID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		ws.Subscribe(h.hub, ws.StoreOrdersChannel(storeID), w, r)

	default:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "no order channel for this role"})
	}
}

// SubscribeDeliveries handles GET /ws/deliveries: the shared unclaimed pool.
// Riders only; the route should sit behind a rider role check as well.
func (h *WSHandler) SubscribeDeliveries(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	if claims.Role != enum.RoleRider {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "deliveries channel is for riders"})
		return
	}

	ws.Subscribe(h.hub, ws.RiderDeliveriesChannel(), w, r)
}

// SubscribeChat handles GET /ws/chat/{storeID}. Customers join their own
// thread; store owners name the customer with ?user_id= and must own the
// store.
func (h *WSHandler) SubscribeChat(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store ID"})
		return
	}

	switch claims.Role {
	case enum.RoleCustomer:
		ws.Subscribe(h.hub, ws.ChatChannel(storeID, claims.UserID), w, r)

	case enum.RoleStoreOwner:
		st, err := h.store.GetStore(r.Context(), storeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
				return
			}
			log.Printf("ERROR: get store for chat subscription: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if st.OwnerID != claims.UserID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
			return
		}
		ws.Subscribe(h.hub, ws.ChatChannel(storeID, userID), w, r)

	default:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "chat is for customers and store owners"})
	}
}
