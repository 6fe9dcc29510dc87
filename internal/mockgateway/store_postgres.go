package mockgateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gemnet/pkg/platform/sentinel"
)

// UsersSchema creates the mock backend's user table.
const UsersSchema = `
CREATE TABLE IF NOT EXISTS mock_users (
	id            UUID PRIMARY KEY,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	phone_number  TEXT NOT NULL,
	address       TEXT NOT NULL,
	date_of_birth TEXT NOT NULL,
	nic_number    TEXT NOT NULL,
	device        TEXT NOT NULL DEFAULT '',
	registered_at TIMESTAMPTZ NOT NULL,
	face_verified BOOLEAN NOT NULL DEFAULT FALSE,
	nic_verified  BOOLEAN NOT NULL DEFAULT FALSE
)`

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// PgxUserStore persists mock backend accounts in PostgreSQL.
type PgxUserStore struct {
	pool *pgxpool.Pool
}

// NewPgxUserStore constructs a PostgreSQL-backed user store.
func NewPgxUserStore(pool *pgxpool.Pool) *PgxUserStore {
	return &PgxUserStore{pool: pool}
}

// EnsureSchema creates the user table if it does not exist.
func (s *PgxUserStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, UsersSchema); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *PgxUserStore) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO mock_users (
			id, first_name, last_name, email, password_hash, phone_number,
			address, date_of_birth, nic_number, device, registered_at,
			face_verified, nic_verified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.pool.Exec(ctx, query,
		user.ID, user.FirstName, user.LastName, normalizeEmail(user.Email),
		user.PasswordHash, user.PhoneNumber, user.Address, user.DateOfBirth,
		user.NICNumber, user.Device, user.RegisteredAt,
		user.FaceVerified, user.NicVerified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PgxUserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getBy(ctx, "id = $1", id)
}

func (s *PgxUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "email = $1", normalizeEmail(email))
}

func (s *PgxUserStore) getBy(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, phone_number,
		       address, date_of_birth, nic_number, device, registered_at,
		       face_verified, nic_verified
		FROM mock_users WHERE ` + where

	var user User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.PasswordHash, &user.PhoneNumber, &user.Address,
		&user.DateOfBirth, &user.NICNumber, &user.Device,
		&user.RegisteredAt, &user.FaceVerified, &user.NicVerified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *PgxUserStore) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE mock_users
		SET face_verified = $2, nic_verified = $3
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, user.ID, user.FaceVerified, user.NicVerified)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
