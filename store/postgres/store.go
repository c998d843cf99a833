// Package postgres implements [ardentid.UserStore] on PostgreSQL via pgx.
//
// Emails are matched exactly; the unique index on users.email backs the
// duplicate check performed by Insert.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the users table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL,
	password_hash   TEXT NOT NULL,
	given_name      TEXT NOT NULL DEFAULT '',
	family_name     TEXT NOT NULL DEFAULT '',
	status          SMALLINT NOT NULL DEFAULT 0,
	email_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	roles           TEXT[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email);
`

const (
	uniqueViolation = "23505"

	qFindByEmail = `
SELECT id, email, password_hash, given_name, family_name, status,
       email_confirmed, roles, created_at, updated_at
FROM users WHERE email = $1`

	qInsert = `
INSERT INTO users (id, email, password_hash, given_name, family_name, status,
                   email_confirmed, roles, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`

	qConfirm = `
UPDATE users SET email_confirmed = TRUE, status = $2, updated_at = $3
WHERE id = $1`
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db  DB
	now func() time.Time
}

func New(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects a pool to dsn and pings it.
func Open(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate applies [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

func (s *Store) FindByEmail(ctx context.Context, email string) (ardentid.UserRecord, error) {
	var (
		u      ardentid.UserRecord
		status int16
	)
	err := s.db.QueryRow(ctx, qFindByEmail, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.GivenName, &u.FamilyName, &status,
		&u.EmailConfirmed, &u.Roles, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ardentid.UserRecord{}, ardentid.ErrUserNotFound
	}
	if err != nil {
		return ardentid.UserRecord{}, fmt.Errorf("find user by email: %w", err)
	}

	u.Status = ardentid.AccountStatus(status)
	return u, nil
}

func (s *Store) Insert(ctx context.Context, u ardentid.UserRecord) (string, error) {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	var id string
	err := s.db.QueryRow(ctx, qInsert,
		u.ID, u.Email, u.PasswordHash, u.GivenName, u.FamilyName, int16(u.Status),
		u.EmailConfirmed, roles, u.CreatedAt, u.UpdatedAt,
	).Scan(&id)
	if isUniqueViolation(err) {
		return "", ardentid.ErrDuplicateIdentity
	}
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx, qConfirm, userID, int16(ardentid.StatusActive), s.now().UTC())
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ardentid.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
