package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const storeColumns = `id, owner_id, name, category, description, address, hours, created_at, updated_at`

func scanStore(row interface{ Scan(dest ...interface{}) error }) (Store, error) {
	var s Store
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Category, &s.Description, &s.Address, &s.Hours, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type ListStoresParams struct {
	Category pgtype.Text
}

// ListStores returns the store directory sorted by name, optionally filtered
// to a single category.
func (q *Queries) ListStores(ctx context.Context, arg ListStoresParams) ([]Store, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+storeColumns+` FROM stores
		WHERE ($1::text IS NULL OR category = $1)
		ORDER BY name ASC`,
		arg.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func (q *Queries) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	return scanStore(row)
}

func (q *Queries) ListStoresByOwner(ctx context.Context, ownerID uuid.UUID) ([]Store, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+storeColumns+` FROM stores WHERE owner_id = $1 ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

type CreateStoreParams struct {
	OwnerID     uuid.UUID
	Name        string
	Category    string
	Description pgtype.Text
	Address     pgtype.Text
	Hours       []byte
}

func (q *Queries) CreateStore(ctx context.Context, arg CreateStoreParams) (Store, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO stores (owner_id, name, category, description, address, hours)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+storeColumns,
		arg.OwnerID, arg.Name, arg.Category, arg.Description, arg.Address, arg.Hours)
	return scanStore(row)
}

type UpdateStoreParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Category    string
	Description pgtype.Text
	Address     pgtype.Text
	Hours       []byte
}

// UpdateStore is scoped by owner so a store owner can only edit their own store.
func (q *Queries) UpdateStore(ctx context.Context, arg UpdateStoreParams) (Store, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE stores
		SET name = $3, category = $4, description = $5, address = $6, hours = $7, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+storeColumns,
		arg.ID, arg.OwnerID, arg.Name, arg.Category, arg.Description, arg.Address, arg.Hours)
	return scanStore(row)
}

func (q *Queries) GetStoreContact(ctx context.Context, storeID uuid.UUID) (StoreContact, error) {
	var c StoreContact
	err := q.db.QueryRow(ctx, `
		SELECT store_id, phone, email, updated_at FROM store_contacts WHERE store_id = $1`,
		storeID).Scan(&c.StoreID, &c.Phone, &c.Email, &c.UpdatedAt)
	return c, err
}

type UpsertStoreContactParams struct {
	StoreID uuid.UUID
	Phone   pgtype.Text
	Email   pgtype.Text
}

func (q *Queries) UpsertStoreContact(ctx context.Context, arg UpsertStoreContactParams) (StoreContact, error) {
	var c StoreContact
	err := q.db.QueryRow(ctx, `
		INSERT INTO store_contacts (store_id, phone, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (store_id) DO UPDATE SET phone = EXCLUDED.phone, email = EXCLUDED.email, updated_at = now()
		RETURNING store_id, phone, email, updated_at`,
		arg.StoreID, arg.Phone, arg.Email).Scan(&c.StoreID, &c.Phone, &c.Email, &c.UpdatedAt)
	return c, err
}
