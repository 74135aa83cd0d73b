package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const profileColumns = `id, email, hashed_password, full_name, phone_number, role, created_at, updated_at`

func scanProfile(row interface{ Scan(dest ...interface{}) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.HashedPassword, &p.FullName, &p.PhoneNumber, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreateProfileParams struct {
	Email          string
	HashedPassword string
	FullName       string
	PhoneNumber    pgtype.Text
	Role           string
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (Profile, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO profiles (email, hashed_password, full_name, phone_number, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+profileColumns,
		arg.Email, arg.HashedPassword, arg.FullName, arg.PhoneNumber, arg.Role)
	return scanProfile(row)
}

func (q *Queries) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	return scanProfile(row)
}

func (q *Queries) GetProfileByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

type UpdateProfileRoleParams struct {
	ID   uuid.UUID
	Role string
}

// UpdateProfileRole re-applies a role hint carried through a later sign-in.
func (q *Queries) UpdateProfileRole(ctx context.Context, arg UpdateProfileRoleParams) (Profile, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE profiles SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns,
		arg.ID, arg.Role)
	return scanProfile(row)
}
