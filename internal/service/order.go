package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/enum"
	"github.com/swiftdrop/api/internal/phone"
	"github.com/swiftdrop/api/internal/workflow"
)

// Errors returned by the order service.
var (
	ErrEmptyItems      = errors.New("items are required")
	ErrNoValidItems    = errors.New("at least one item with a name and a positive price is required")
	ErrAddressRequired = errors.New("delivery_address is required")
	ErrPhoneRequired   = errors.New("phone_number is required")
	ErrInvalidPhone    = errors.New("phone_number is not a valid Nigerian mobile number")
	ErrStoreNotFound   = errors.New("store not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotYourOrder    = errors.New("order does not belong to you")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrStatusConflict  = errors.New("order status changed, please retry")
	ErrAlreadyClaimed  = errors.New("delivery already claimed by another rider")
	ErrNotClaimable    = errors.New("order is not ready for pickup")
)

// estimatedDeliveryWindow is stamped when a delivery goes in transit.
const estimatedDeliveryWindow = 30 * time.Minute

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetStore(ctx context.Context, id uuid.UUID) (database.Store, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ClaimOrder(ctx context.Context, arg database.ClaimOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderItem is one line item as stored on the order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreateOrderRequest is the input for placing an order.
type CreateOrderRequest struct {
	UserID          uuid.UUID
	StoreID         uuid.UUID
	Items           []OrderItem
	DeliveryAddress string
	PhoneNumber     string
	Notes           string
}

// UpdateStatusRequest advances an order through the fulfillment workflow.
type UpdateStatusRequest struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole string
	NewStatus string
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// validOrderItems drops line items with a blank name, a non-positive price,
// or a non-positive quantity.
func validOrderItems(items []OrderItem) []OrderItem {
	var valid []OrderItem
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" || it.Price <= 0 || it.Quantity <= 0 {
			continue
		}
		it.Name = strings.TrimSpace(it.Name)
		valid = append(valid, it)
	}
	return valid
}

// orderTotal sums price x quantity over the items.
func orderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	return total
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("convert decimal %s: %w", d, err)
	}
	return n, nil
}

// CreateOrder validates the request, recomputes the total server-side and
// inserts the order. The client-supplied total, if any, is never trusted.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if len(req.Items) == 0 {
		return database.Order{}, ErrEmptyItems
	}

	items := validOrderItems(req.Items)
	if len(items) == 0 {
		return database.Order{}, ErrNoValidItems
	}

	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return database.Order{}, ErrAddressRequired
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return database.Order{}, ErrPhoneRequired
	}

	normalized := phone.Normalize(req.PhoneNumber)
	if !phone.Valid(normalized) {
		return database.Order{}, ErrInvalidPhone
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return database.Order{}, fmt.Errorf("marshal items: %w", err)
	}

	total, err := decimalToNumeric(orderTotal(items))
	if err != nil {
		return database.Order{}, err
	}

	var notes pgtype.Text
	if n := strings.TrimSpace(req.Notes); n != "" {
		notes = pgtype.Text{String: n, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	if _, err := store.GetStore(ctx, req.StoreID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStoreNotFound
		}
		return database.Order{}, fmt.Errorf("get store: %w", err)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:          req.UserID,
		StoreID:         req.StoreID,
		Items:           itemsJSON,
		TotalAmount:     total,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		PhoneNumber:     normalized,
		Notes:           notes,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// UpdateStatus moves an order to a new status on behalf of an actor. The
// transition must be permitted by the workflow table for the actor's role,
// the actor must be a party to the order, and the write is a compare-and-swap
// against the status the order was observed in.
func (s *OrderService) UpdateStatus(ctx context.Context, store OrderStore, req UpdateStatusRequest) (database.Order, error) {
	if !enum.IsValidOrderStatus(req.NewStatus) {
		return database.Order{}, ErrInvalidStatus
	}

	current, err := store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := s.authorizeActor(ctx, store, current, req); err != nil {
		return database.Order{}, err
	}

	if err := workflow.CanTransition(current.Status, req.NewStatus, req.ActorRole); err != nil {
		return database.Order{}, err
	}

	// Claiming is a separate atomic path because it also takes the rider slot.
	if req.NewStatus == enum.OrderStatusPickedUp {
		return s.claim(ctx, store, req.OrderID, req.ActorID)
	}

	now := time.Now()
	params := database.UpdateOrderStatusParams{
		ID:         req.OrderID,
		Status:     req.NewStatus,
		FromStatus: current.Status,
	}
	switch req.NewStatus {
	case enum.OrderStatusReadyForPickup:
		params.PickupRequestedAt = pgtype.Timestamptz{Time: now, Valid: true}
	case enum.OrderStatusInTransit:
		params.EstimatedDeliveryTime = pgtype.Timestamptz{Time: now.Add(estimatedDeliveryWindow), Valid: true}
	}

	updated, err := store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status moved between our read and write.
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	return updated, nil
}

// ClaimDelivery assigns an unclaimed ready-for-pickup order to the rider and
// stamps the pickup time.
func (s *OrderService) ClaimDelivery(ctx context.Context, store OrderStore, orderID, riderID uuid.UUID) (database.Order, error) {
	return s.claim(ctx, store, orderID, riderID)
}

func (s *OrderService) claim(ctx context.Context, store OrderStore, orderID, riderID uuid.UUID) (database.Order, error) {
	order, err := store.ClaimOrder(ctx, database.ClaimOrderParams{
		ID:         orderID,
		RiderID:    riderID,
		PickedUpAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, fmt.Errorf("claim order: %w", err)
	}

	// Nothing updated: distinguish missing, already-claimed, and wrong-status.
	current, fetchErr := store.GetOrder(ctx, orderID)
	if fetchErr != nil {
		if errors.Is(fetchErr, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order after failed claim: %w", fetchErr)
	}
	if current.RiderID.Valid {
		return database.Order{}, ErrAlreadyClaimed
	}
	return database.Order{}, ErrNotClaimable
}

// authorizeActor checks that the requesting actor is a party to the order:
// the owning customer, the owner of the target store, or the assigned rider.
func (s *OrderService) authorizeActor(ctx context.Context, store OrderStore, order database.Order, req UpdateStatusRequest) error {
	switch req.ActorRole {
	case enum.RoleCustomer:
		if order.UserID != req.ActorID {
			return ErrNotYourOrder
		}
	case enum.RoleStoreOwner:
		st, err := store.GetStore(ctx, order.StoreID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrStoreNotFound
			}
			return fmt.Errorf("get store: %w", err)
		}
		if st.OwnerID != req.ActorID {
			return ErrNotYourOrder
		}
	case enum.RoleRider:
		// Claiming targets unassigned orders; any later rider transition
		// must come from the assigned rider.
		if req.NewStatus != enum.OrderStatusPickedUp {
			if !order.RiderID.Valid || uuid.UUID(order.RiderID.Bytes) != req.ActorID {
				return ErrNotYourOrder
			}
		}
	default:
		return ErrNotYourOrder
	}
	return nil
}
