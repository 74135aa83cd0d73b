package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/middleware"
	"github.com/swiftdrop/api/internal/push"
	"github.com/swiftdrop/api/internal/service"
	"github.com/swiftdrop/api/internal/workflow"
	"github.com/swiftdrop/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	UpdateStatus(ctx context.Context, store service.OrderStore, req service.UpdateStatusRequest) (database.Order, error)
	ClaimDelivery(ctx context.Context, store service.OrderStore, orderID, riderID uuid.UUID) (database.Order, error)
}

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	service.OrderStore
	ListOrdersByCustomer(ctx context.Context, userID uuid.UUID) ([]database.OrderWithStoreRow, error)
	ListOrdersByOwner(ctx context.Context, ownerID uuid.UUID) ([]database.OrderWithStoreRow, error)
	ListAvailableDeliveries(ctx context.Context) ([]database.OrderWithStoreRow, error)
	ListRiderDeliveries(ctx context.Context, riderID uuid.UUID) ([]database.OrderWithStoreRow, error)
}

// Notifier sends push notifications. Satisfied by *push.Notifier.
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, msg push.Message) (push.Result, error)
}

// OrderHandler handles order and delivery endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	hub      *ws.Hub
	notifier Notifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub *ws.Hub, notifier Notifier) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub, notifier: notifier}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// RegisterDeliveryRoutes registers the rider-facing delivery endpoints.
// Expected to be mounted at /deliveries behind a rider role check.
func (h *OrderHandler) RegisterDeliveryRoutes(r chi.Router) {
	r.Get("/available", h.ListAvailable)
	r.Get("/mine", h.ListMine)
	r.Post("/{id}/claim", h.Claim)
}

// --- Request / Response types ---

type createOrderRequest struct {
	StoreID         string              `json:"store_id"`
	Items           []service.OrderItem `json:"items"`
	DeliveryAddress string              `json:"delivery_address"`
	PhoneNumber     string              `json:"phone_number"`
	Notes           string              `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                    uuid.UUID           `json:"id"`
	UserID                uuid.UUID           `json:"user_id"`
	StoreID               uuid.UUID           `json:"store_id"`
	RiderID               *string             `json:"rider_id"`
	Items                 []service.OrderItem `json:"items"`
	TotalAmount           string              `json:"total_amount"`
	DeliveryAddress       string              `json:"delivery_address"`
	PhoneNumber           string              `json:"phone_number"`
	Notes                 *string             `json:"notes"`
	Status                string              `json:"status"`
	PickupRequestedAt     *time.Time          `json:"pickup_requested_at"`
	PickedUpAt            *time.Time          `json:"picked_up_at"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// orderWithStoreResponse adds store display fields for the list endpoints.
type orderWithStoreResponse struct {
	orderResponse
	StoreName    string  `json:"store_name"`
	StorePhone   *string `json:"store_phone"`
	StoreAddress *string `json:"store_address"`
}

type orderListResponse struct {
	Orders []orderWithStoreResponse `json:"orders"`
}

// --- Handlers ---

// Create handles POST /orders. Customers only.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	if claims.Role != enum.RoleCustomer {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only customers can place orders"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:          claims.UserID,
		StoreID:         storeID,
		Items:           req.Items,
		DeliveryAddress: req.DeliveryAddress,
		PhoneNumber:     req.PhoneNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrStoreNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "store not found"})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publishOrderEvent("order.created", order)
	h.notifyStoreOwner(r.Context(), order, "New order",
		"You have a new order waiting for confirmation")

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /orders. The result set is scoped by the caller's role:
// customers see their own orders, store owners see orders against their
// stores, riders see their active deliveries.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var (
		rows []database.OrderWithStoreRow
		err  error
	)
	switch claims.Role {
	case enum.RoleCustomer:
		rows, err = h.store.ListOrdersByCustomer(r.Context(), claims.UserID)
	case enum.RoleStoreOwner:
		rows, err = h.store.ListOrdersByOwner(r.Context(), claims.UserID)
	case enum.RoleRider:
		rows, err = h.store.ListRiderDeliveries(r.Context(), claims.UserID)
	default:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "unknown role"})
		return
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(rows))
}

// Get handles GET /orders/{id}. Only parties to the order may read it.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	allowed, err := h.canReadOrder(r.Context(), claims.UserID, claims.Role, order)
	if err != nil {
		log.Printf("ERROR: authorizing order read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !allowed {
		// Non-parties get the same answer as a missing order.
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), h.store, service.UpdateStatusRequest{
		OrderID:   orderID,
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		NewStatus: req.Status,
	})
	if err != nil {
		h.writeStatusUpdateError(w, err)
		return
	}

	h.publishOrderEvent("order.status_changed", updated)
	if updated.Status == enum.OrderStatusReadyForPickup {
		h.publishDeliveryEvent("delivery.available", updated)
	}
	h.notifyCustomer(r.Context(), updated)

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// ListAvailable handles GET /deliveries/available: the shared pool of
// ready-for-pickup orders no rider has claimed yet.
func (h *OrderHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListAvailableDeliveries(r.Context())
	if err != nil {
		log.Printf("ERROR: list available deliveries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(rows))
}

// ListMine handles GET /deliveries/mine: the rider's in-flight deliveries.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	rows, err := h.store.ListRiderDeliveries(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list rider deliveries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(rows))
}

// Claim handles POST /deliveries/{id}/claim. First rider wins; everyone else
// gets a conflict.
func (h *OrderHandler) Claim(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.ClaimDelivery(r.Context(), h.store, orderID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrAlreadyClaimed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "delivery already claimed by another rider"})
		case errors.Is(err, service.ErrNotClaimable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not ready for pickup"})
		default:
			log.Printf("ERROR: claim delivery: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.publishOrderEvent("order.status_changed", order)
	h.publishDeliveryEvent("delivery.claimed", order)
	h.notifyCustomer(r.Context(), order)

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func (h *OrderHandler) writeStatusUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrNotYourOrder):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you are not a party to this order"})
	case errors.Is(err, workflow.ErrTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
	case errors.Is(err, service.ErrAlreadyClaimed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "delivery already claimed by another rider"})
	case errors.Is(err, service.ErrNotClaimable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not ready for pickup"})
	default:
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *OrderHandler) canReadOrder(ctx context.Context, userID uuid.UUID, role string, order database.Order) (bool, error) {
	switch role {
	case enum.RoleCustomer:
		return order.UserID == userID, nil
	case enum.RoleStoreOwner:
		st, err := h.store.GetStore(ctx, order.StoreID)
		if err != nil {
			return false, err
		}
		return st.OwnerID == userID, nil
	case enum.RoleRider:
		// Unclaimed ready orders are visible to any rider browsing the pool.
		if order.Status == enum.OrderStatusReadyForPickup && !order.RiderID.Valid {
			return true, nil
		}
		return order.RiderID.Valid && uuid.UUID(order.RiderID.Bytes) == userID, nil
	}
	return false, nil
}

// publishOrderEvent pushes an event onto the store's and customer's order
// channels so open clients refresh without polling.
func (h *OrderHandler) publishOrderEvent(eventType string, order database.Order) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(toOrderResponse(order))
	if err != nil {
		log.Printf("ERROR: marshaling order event: %v", err)
		return
	}
	event := ws.Event{Type: eventType, Payload: payload}
	h.hub.Broadcast(ws.StoreOrdersChannel(order.StoreID), event)
	h.hub.Broadcast(ws.CustomerOrdersChannel(order.UserID), event)
}

// publishDeliveryEvent pushes an event onto the shared rider pool channel.
func (h *OrderHandler) publishDeliveryEvent(eventType string, order database.Order) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(toOrderResponse(order))
	if err != nil {
		log.Printf("ERROR: marshaling delivery event: %v", err)
		return
	}
	h.hub.Broadcast(ws.RiderDeliveriesChannel(), ws.Event{Type: eventType, Payload: payload})
}

func (h *OrderHandler) notifyStoreOwner(ctx context.Context, order database.Order, title, body string) {
	if h.notifier == nil {
		return
	}
	st, err := h.store.GetStore(ctx, order.StoreID)
	if err != nil {
		log.Printf("ERROR: fetching store for notification: %v", err)
		return
	}
	h.sendNotification(ctx, st.OwnerID, order, title, body)
}

func (h *OrderHandler) notifyCustomer(ctx context.Context, order database.Order) {
	if h.notifier == nil {
		return
	}
	h.sendNotification(ctx, order.UserID, order, "Order update", statusMessage(order.Status))
}

func (h *OrderHandler) sendNotification(ctx context.Context, userID uuid.UUID, order database.Order, title, body string) {
	// Notification failures never fail the request.
	_, err := h.notifier.Notify(ctx, []uuid.UUID{userID}, push.Message{
		Title: title,
		Body:  body,
		Type:  enum.NotificationTypeOrderStatus,
		Data:  map[string]string{"order_id": order.ID.String(), "status": order.Status},
	})
	if err != nil {
		log.Printf("ERROR: sending notification for order %s: %v", order.ID, err)
	}
}

func statusMessage(status string) string {
	switch status {
	case enum.OrderStatusAccepted:
		return "Your order has been accepted"
	case enum.OrderStatusPacked:
		return "Your order has been packed"
	case enum.OrderStatusReadyForPickup:
		return "Your order is ready and waiting for a rider"
	case enum.OrderStatusPickedUp:
		return "A rider has picked up your order"
	case enum.OrderStatusInTransit:
		return "Your order is on the way"
	case enum.OrderStatusDelivered:
		return "Your order has been delivered"
	case enum.OrderStatusCancelled:
		return "Your order has been cancelled"
	}
	return "Your order status is now " + status
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrNoValidItems) ||
		errors.Is(err, service.ErrAddressRequired) ||
		errors.Is(err, service.ErrPhoneRequired) ||
		errors.Is(err, service.ErrInvalidPhone)
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		StoreID:         o.StoreID,
		TotalAmount:     numericToString(o.TotalAmount),
		DeliveryAddress: o.DeliveryAddress,
		PhoneNumber:     o.PhoneNumber,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	if err := json.Unmarshal(o.Items, &resp.Items); err != nil {
		log.Printf("ERROR: unmarshaling items for order %s: %v", o.ID, err)
		resp.Items = []service.OrderItem{}
	}

	if o.RiderID.Valid {
		s := uuid.UUID(o.RiderID.Bytes).String()
		resp.RiderID = &s
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.PickupRequestedAt.Valid {
		resp.PickupRequestedAt = &o.PickupRequestedAt.Time
	}
	if o.PickedUpAt.Valid {
		resp.PickedUpAt = &o.PickedUpAt.Time
	}
	if o.EstimatedDeliveryTime.Valid {
		resp.EstimatedDeliveryTime = &o.EstimatedDeliveryTime.Time
	}
	return resp
}

func toOrderListResponse(rows []database.OrderWithStoreRow) orderListResponse {
	resp := orderListResponse{Orders: make([]orderWithStoreResponse, len(rows))}
	for i, row := range rows {
		item := orderWithStoreResponse{
			orderResponse: toOrderResponse(row.Order),
			StoreName:     row.StoreName,
		}
		if row.StorePhone.Valid {
			item.StorePhone = &row.StorePhone.String
		}
		if row.StoreAddress.Valid {
			item.StoreAddress = &row.StoreAddress.String
		}
		resp.Orders[i] = item
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
