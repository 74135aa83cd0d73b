package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Profile struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	PhoneNumber    pgtype.Text
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Store struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Category    string
	Description pgtype.Text
	Address     pgtype.Text
	// Hours is a JSON object mapping weekday name to a free-text range,
	// e.g. {"monday": "8am - 9pm"}.
	Hours     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type StoreContact struct {
	StoreID   uuid.UUID
	Phone     pgtype.Text
	Email     pgtype.Text
	UpdatedAt time.Time
}

type Order struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	StoreID  uuid.UUID
	RiderID  pgtype.UUID
	// Items is the ordered line-item array as JSON:
	// [{"name": ..., "quantity": ..., "price": ...}].
	Items                 []byte
	TotalAmount           pgtype.Numeric
	DeliveryAddress       string
	PhoneNumber           string
	Notes                 pgtype.Text
	Status                string
	PickupRequestedAt     pgtype.Timestamptz
	PickedUpAt            pgtype.Timestamptz
	EstimatedDeliveryTime pgtype.Timestamptz
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type ChatMessage struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	UserID     uuid.UUID
	Message    string
	SenderType string
	CreatedAt  time.Time
}

type PushToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Platform  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Body      string
	Type      string
	Data      []byte
	CreatedAt time.Time
}
