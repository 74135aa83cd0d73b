package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, store_id, rider_id, items, total_amount, delivery_address,
	phone_number, notes, status, pickup_requested_at, picked_up_at, estimated_delivery_time,
	created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.StoreID, &o.RiderID, &o.Items, &o.TotalAmount,
		&o.DeliveryAddress, &o.PhoneNumber, &o.Notes, &o.Status, &o.PickupRequestedAt,
		&o.PickedUpAt, &o.EstimatedDeliveryTime, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// OrderWithStoreRow is an order joined with the related store's display fields.
type OrderWithStoreRow struct {
	Order
	StoreName    string
	StorePhone   pgtype.Text
	StoreAddress pgtype.Text
}

const orderWithStoreColumns = `o.id, o.user_id, o.store_id, o.rider_id, o.items, o.total_amount,
	o.delivery_address, o.phone_number, o.notes, o.status, o.pickup_requested_at, o.picked_up_at,
	o.estimated_delivery_time, o.created_at, o.updated_at, s.name, sc.phone, s.address`

func scanOrderWithStore(row interface{ Scan(dest ...interface{}) error }) (OrderWithStoreRow, error) {
	var r OrderWithStoreRow
	err := row.Scan(&r.ID, &r.UserID, &r.StoreID, &r.RiderID, &r.Items, &r.TotalAmount,
		&r.DeliveryAddress, &r.PhoneNumber, &r.Notes, &r.Status, &r.PickupRequestedAt,
		&r.PickedUpAt, &r.EstimatedDeliveryTime, &r.CreatedAt, &r.UpdatedAt,
		&r.StoreName, &r.StorePhone, &r.StoreAddress)
	return r, err
}

func collectOrdersWithStore(q *Queries, ctx context.Context, sql string, args ...interface{}) ([]OrderWithStoreRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderWithStoreRow
	for rows.Next() {
		r, err := scanOrderWithStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CreateOrderParams struct {
	UserID          uuid.UUID
	StoreID         uuid.UUID
	Items           []byte
	TotalAmount     pgtype.Numeric
	DeliveryAddress string
	PhoneNumber     string
	Notes           pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (user_id, store_id, items, total_amount, delivery_address, phone_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderColumns,
		arg.UserID, arg.StoreID, arg.Items, arg.TotalAmount, arg.DeliveryAddress, arg.PhoneNumber, arg.Notes)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListOrdersByCustomer returns the customer's own orders, newest first,
// joined with store display fields.
func (q *Queries) ListOrdersByCustomer(ctx context.Context, userID uuid.UUID) ([]OrderWithStoreRow, error) {
	return collectOrdersWithStore(q, ctx, `
		SELECT `+orderWithStoreColumns+`
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		LEFT JOIN store_contacts sc ON sc.store_id = s.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
}

// ListOrdersByOwner returns every order placed against any of the owner's
// stores, newest first.
func (q *Queries) ListOrdersByOwner(ctx context.Context, ownerID uuid.UUID) ([]OrderWithStoreRow, error) {
	return collectOrdersWithStore(q, ctx, `
		SELECT `+orderWithStoreColumns+`
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		LEFT JOIN store_contacts sc ON sc.store_id = s.id
		WHERE s.owner_id = $1
		ORDER BY o.created_at DESC`, ownerID)
}

// ListAvailableDeliveries returns unclaimed orders ready for pickup, oldest
// pickup request first.
func (q *Queries) ListAvailableDeliveries(ctx context.Context) ([]OrderWithStoreRow, error) {
	return collectOrdersWithStore(q, ctx, `
		SELECT `+orderWithStoreColumns+`
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		LEFT JOIN store_contacts sc ON sc.store_id = s.id
		WHERE o.status = 'ready_for_pickup' AND o.rider_id IS NULL
		ORDER BY o.pickup_requested_at ASC`)
}

// ListRiderDeliveries returns the rider's in-flight deliveries in pickup order.
func (q *Queries) ListRiderDeliveries(ctx context.Context, riderID uuid.UUID) ([]OrderWithStoreRow, error) {
	return collectOrdersWithStore(q, ctx, `
		SELECT `+orderWithStoreColumns+`
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		LEFT JOIN store_contacts sc ON sc.store_id = s.id
		WHERE o.rider_id = $1 AND o.status IN ('picked_up', 'in_transit')
		ORDER BY o.picked_up_at ASC`, riderID)
}

// ListDeliveredOrdersByOwner returns completed orders for the owner's stores,
// newest first. Feeds the sales report.
func (q *Queries) ListDeliveredOrdersByOwner(ctx context.Context, ownerID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'delivered'
		  AND store_id IN (SELECT id FROM stores WHERE owner_id = $1)
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
	// Optional stamps; NULL leaves the stored value untouched.
	PickupRequestedAt     pgtype.Timestamptz
	EstimatedDeliveryTime pgtype.Timestamptz
}

// UpdateOrderStatus performs a compare-and-swap on the status column: the
// update only applies while the order is still in FromStatus, so concurrent
// writers cannot silently clobber each other.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    pickup_requested_at = COALESCE($4, pickup_requested_at),
		    estimated_delivery_time = COALESCE($5, estimated_delivery_time),
		    updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.FromStatus, arg.PickupRequestedAt, arg.EstimatedDeliveryTime)
	return scanOrder(row)
}

type ClaimOrderParams struct {
	ID         uuid.UUID
	RiderID    uuid.UUID
	PickedUpAt pgtype.Timestamptz
}

// ClaimOrder atomically assigns a rider. The WHERE clause enforces the
// precondition: the order must be ready for pickup and still unclaimed.
func (q *Queries) ClaimOrder(ctx context.Context, arg ClaimOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET rider_id = $2, status = 'picked_up', picked_up_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'ready_for_pickup' AND rider_id IS NULL
		RETURNING `+orderColumns,
		arg.ID, arg.RiderID, arg.PickedUpAt)
	return scanOrder(row)
}
