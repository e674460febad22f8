package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists API keys.
type Repository interface {
	Create(ctx context.Context, key Key) error
	FindBySecret(ctx context.Context, secret string) (Key, error)
	FindByID(ctx context.Context, id string) (Key, error)
	CountActive(ctx context.Context, userID string, now time.Time) (int, error)
}

// PostgresRepository stores API keys in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed API key repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a key record.
func (r *PostgresRepository) Create(ctx context.Context, key Key) error {
	keyID, err := uuid.Parse(key.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(key.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO api_keys (id, user_id, name, secret, permissions, revoked, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		keyID, userID, key.Name, key.Secret, key.Permissions, key.Revoked, key.ExpiresAt.UTC(), key.CreatedAt.UTC())
	return err
}

const keyColumns = `id, user_id, name, secret, permissions, revoked, expires_at, created_at`

// FindBySecret fetches a key by its secret value.
func (r *PostgresRepository) FindBySecret(ctx context.Context, secret string) (Key, error) {
	row := r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE secret = $1`, secret)
	return scanKey(row)
}

// FindByID fetches a key by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Key, error) {
	keyID, err := uuid.Parse(id)
	if err != nil {
		return Key{}, ErrKeyNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE id = $1`, keyID)
	return scanKey(row)
}

// CountActive counts non-revoked, unexpired keys for a user.
func (r *PostgresRepository) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, ErrKeyNotFound
	}
	var count int
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = $1 AND NOT revoked AND expires_at > $2`,
		uid, now.UTC()).Scan(&count)
	return count, err
}

func scanKey(row pgx.Row) (Key, error) {
	var (
		id     uuid.UUID
		userID uuid.UUID
		key    Key
	)
	if err := row.Scan(&id, &userID, &key.Name, &key.Secret, &key.Permissions, &key.Revoked, &key.ExpiresAt, &key.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrKeyNotFound
		}
		return Key{}, err
	}
	key.ID = id.String()
	key.UserID = userID.String()
	key.ExpiresAt = key.ExpiresAt.UTC()
	key.CreatedAt = key.CreatedAt.UTC()
	return key, nil
}
