// Package userstore provides the Postgres-backed account store.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bazario-labs/authcore"
)

// Schema is the table the store expects. Migrations live with the
// deployment; this is here so tests and fresh environments can apply it
// directly.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            UUID PRIMARY KEY,
	role          TEXT NOT NULL,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const uniqueViolation = "23505"

type accountRow struct {
	ID           string    `db:"id"`
	Role         string    `db:"role"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Phone        string    `db:"phone"`
	Country      string    `db:"country"`
	CreatedAt    time.Time `db:"created_at"`
}

// Postgres implements [authcore.UserStore] over sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// FindByEmail implements [authcore.UserStore].
func (s *Postgres) FindByEmail(ctx context.Context, email string) (*authcore.UserRecord, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, role, name, email, password_hash, phone, country, created_at
		 FROM accounts WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return row.record(), nil
}

// Create implements [authcore.UserStore]. A duplicate email surfaces as
// [authcore.ErrAccountExists] via the unique constraint, so concurrent
// finalizations of the same registration cannot both succeed.
func (s *Postgres) Create(ctx context.Context, input authcore.CreateUserInput) (*authcore.UserRecord, error) {
	row := accountRow{
		ID:           uuid.NewString(),
		Role:         string(input.Role),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Phone:        input.Phone,
		Country:      input.Country,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO accounts (id, role, name, email, password_hash, phone, country, created_at)
		 VALUES (:id, :role, :name, :email, :password_hash, :phone, :country, :created_at)`, row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, authcore.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return row.record(), nil
}

// UpdatePasswordHash implements [authcore.UserStore].
func (s *Postgres) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE email = $2`, hash, email)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func (r accountRow) record() *authcore.UserRecord {
	return &authcore.UserRecord{
		ID:           r.ID,
		Role:         authcore.Role(r.Role),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Phone:        r.Phone,
		Country:      r.Country,
		CreatedAt:    r.CreatedAt,
	}
}
