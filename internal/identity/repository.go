package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
)

var (
	// ErrUserNotFound occurs when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken occurs when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Repository persists users. Create provisions the user and their wallet as a
// single unit; a user never exists without a wallet.
type Repository interface {
	Create(ctx context.Context, user User, wallet ledger.Wallet) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user and wallet rows in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, user User, wallet ledger.Wallet) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO users (id, email, name, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`, userID, user.Email, user.Name, user.PasswordHash, user.CreatedAt.UTC()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO wallets (id, user_id, wallet_number, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`, walletID, userID, wallet.Number, wallet.Balance.String(), wallet.CreatedAt.UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Email, &user.Name, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
