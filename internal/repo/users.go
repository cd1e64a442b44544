package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is an account row. PasswordHash is an argon2id encoded string.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	FreeCash     int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserParams captures a new account.
type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
}

const userColumns = `id, email, name, password_hash, roles, free_cash, created_at, updated_at`

// CreateUser inserts an account and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	roles := arg.Roles
	if len(roles) == 0 {
		roles = []string{"customer"}
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		arg.Email, arg.Name, arg.PasswordHash, roles,
	)
	return scanUser(row)
}

// GetUserByEmail fetches an account by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUser fetches an account by id.
func (q *Queries) GetUser(ctx context.Context, userID string) (User, error) {
	id, err := toUUID(userID)
	if err != nil {
		return User{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// AdjustUserFreeCash adds delta to the account's free-cash balance, clamped at
// zero, and returns the new balance.
func (q *Queries) AdjustUserFreeCash(ctx context.Context, userID string, delta int64) (int64, error) {
	id, err := toUUID(userID)
	if err != nil {
		return 0, pgx.ErrNoRows
	}
	var balance int64
	err = q.db.QueryRow(ctx, `
		UPDATE users SET free_cash = GREATEST(free_cash + $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING free_cash`,
		id, delta,
	).Scan(&balance)
	return balance, err
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &u.Email, &u.Name, &u.PasswordHash, &u.Roles, &u.FreeCash, &createdAt, &updatedAt); err != nil {
		return User{}, err
	}
	u.ID = uuidString(id)
	u.CreatedAt = timeFromPG(createdAt)
	u.UpdatedAt = timeFromPG(updatedAt)
	return u, nil
}
