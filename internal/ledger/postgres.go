package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kobo-vault/kobo_vault/internal/money"
)

const uniqueViolation = "23505"

// PostgresStore persists wallets and ledger entries in PostgreSQL. Composite
// operations run inside a single database transaction with the affected wallet
// rows locked in consistent id order.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store implementation.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet record.
func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(w.UserID)
	if err != nil {
		return err
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, wallet_number, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`, walletID, userID, w.Number, w.Balance.String(), w.CreatedAt.UTC())
	return err
}

const walletColumns = `id, user_id, wallet_number, balance::text, created_at`

// WalletByUser fetches the wallet owned by the given user.
func (s *PostgresStore) WalletByUser(ctx context.Context, userID string) (Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, uid)
	return scanWallet(row)
}

// WalletByNumber fetches a wallet by its external wallet number.
func (s *PostgresStore) WalletByNumber(ctx context.Context, number string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE wallet_number = $1`, number)
	return scanWallet(row)
}

// Credit atomically increments the wallet balance and returns the new balance.
func (s *PostgresStore) Credit(ctx context.Context, walletID string, amount money.Money) (money.Money, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return money.Money{}, ErrWalletNotFound
	}
	return creditRow(ctx, s.db, id, amount)
}

// Debit atomically decrements the wallet balance. The non-negative guard and
// the mutation are one statement, so concurrent debits cannot race the check.
func (s *PostgresStore) Debit(ctx context.Context, walletID string, amount money.Money) (money.Money, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return money.Money{}, ErrWalletNotFound
	}
	return debitRow(ctx, s.db, id, amount)
}

// CreateTransaction appends a ledger entry. A reference collision maps to
// ErrDuplicateReference.
func (s *PostgresStore) CreateTransaction(ctx context.Context, tx Transaction) error {
	return insertTransaction(ctx, s.db, tx)
}

// TransactionByReference fetches a ledger entry by its unique reference.
func (s *PostgresStore) TransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	return scanTransaction(row)
}

// UpdateTransactionStatus applies a PENDING -> SUCCESS or PENDING -> FAILED
// transition. Anything else fails with ErrInvalidTransition.
func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, id string, status Status) error {
	if status != StatusSuccess && status != StatusFailed {
		return ErrInvalidTransition
	}
	txID, err := uuid.Parse(id)
	if err != nil {
		return ErrTransactionNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $2 WHERE id = $1 AND status = $3`,
		txID, string(status), string(StatusPending))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, txID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTransactionNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

// AttachGatewayDetails stores the gateway reference and checkout URL obtained
// during deposit initiation.
func (s *PostgresStore) AttachGatewayDetails(ctx context.Context, id, gatewayReference, checkoutURL string) error {
	txID, err := uuid.Parse(id)
	if err != nil {
		return ErrTransactionNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET gateway_reference = $2, checkout_url = $3 WHERE id = $1`,
		txID, gatewayReference, checkoutURL)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// TransactionsByWallet lists a wallet's entries newest first.
func (s *PostgresStore) TransactionsByWallet(ctx context.Context, walletID string) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SettleDeposit flips the referenced PENDING deposit to SUCCESS and credits the
// owning wallet in one database transaction. A reference already in SUCCESS
// returns AlreadySettled with no writes.
func (s *PostgresStore) SettleDeposit(ctx context.Context, reference string, amount money.Money) (SettleResult, error) {
	dbtx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return SettleResult{}, err
	}
	defer dbtx.Rollback(ctx) // nolint:errcheck

	row := dbtx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference)
	tx, err := scanTransaction(row)
	if err != nil {
		return SettleResult{}, err
	}

	walletID, err := uuid.Parse(tx.WalletID)
	if err != nil {
		return SettleResult{}, ErrWalletNotFound
	}

	if tx.Status == StatusSuccess {
		var balance string
		if err := dbtx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE id = $1`, walletID).Scan(&balance); err != nil {
			return SettleResult{}, err
		}
		bal, err := money.Parse(balance)
		if err != nil {
			return SettleResult{}, err
		}
		return SettleResult{Transaction: tx, WalletBalance: bal, AlreadySettled: true}, nil
	}
	if tx.Status != StatusPending {
		return SettleResult{}, ErrInvalidTransition
	}

	if _, err := dbtx.Exec(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, tx.ID, string(StatusSuccess)); err != nil {
		return SettleResult{}, err
	}
	balance, err := creditRow(ctx, dbtx, walletID, amount)
	if err != nil {
		return SettleResult{}, err
	}

	if err := dbtx.Commit(ctx); err != nil {
		return SettleResult{}, err
	}

	tx.Status = StatusSuccess
	return SettleResult{Transaction: tx, WalletBalance: balance}, nil
}

// Transfer applies the paired debit/credit and appends both entries in one
// database transaction. Wallet rows are locked in ascending id order so
// concurrent opposite-direction transfers cannot deadlock.
func (s *PostgresStore) Transfer(ctx context.Context, posting TransferPosting) (TransferResult, error) {
	if !posting.Out.Amount.IsPositive() || !posting.Out.Amount.Equal(posting.In.Amount) {
		return TransferResult{}, fmt.Errorf("posting amounts must be positive and equal")
	}
	fromID, err := uuid.Parse(posting.Out.WalletID)
	if err != nil {
		return TransferResult{}, ErrWalletNotFound
	}
	toID, err := uuid.Parse(posting.In.WalletID)
	if err != nil {
		return TransferResult{}, ErrWalletNotFound
	}

	dbtx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer dbtx.Rollback(ctx) // nolint:errcheck

	first, second := fromID, toID
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		var locked uuid.UUID
		if err := dbtx.QueryRow(ctx, `SELECT id FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return TransferResult{}, ErrWalletNotFound
			}
			return TransferResult{}, err
		}
	}

	fromBalance, err := debitRow(ctx, dbtx, fromID, posting.Out.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	toBalance, err := creditRow(ctx, dbtx, toID, posting.In.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	if err := insertTransaction(ctx, dbtx, posting.Out); err != nil {
		return TransferResult{}, err
	}
	if err := insertTransaction(ctx, dbtx, posting.In); err != nil {
		return TransferResult{}, err
	}

	if err := dbtx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func creditRow(ctx context.Context, q querier, walletID uuid.UUID, amount money.Money) (money.Money, error) {
	var balance string
	err := q.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2::numeric WHERE id = $1
        RETURNING balance::text`, walletID, amount.String()).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return money.Money{}, ErrWalletNotFound
		}
		return money.Money{}, err
	}
	return money.Parse(balance)
}

func debitRow(ctx context.Context, q querier, walletID uuid.UUID, amount money.Money) (money.Money, error) {
	var balance string
	err := q.QueryRow(ctx, `UPDATE wallets SET balance = balance - $2::numeric
        WHERE id = $1 AND balance >= $2::numeric RETURNING balance::text`, walletID, amount.String()).Scan(&balance)
	if err == nil {
		return money.Parse(balance)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return money.Money{}, err
	}
	var exists bool
	if scanErr := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists); scanErr != nil {
		return money.Money{}, scanErr
	}
	if !exists {
		return money.Money{}, ErrWalletNotFound
	}
	return money.Money{}, ErrInsufficientFunds
}

func insertTransaction(ctx context.Context, q querier, tx Transaction) error {
	txID, err := uuid.Parse(tx.ID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(tx.WalletID)
	if err != nil {
		return err
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err = q.Exec(ctx, `INSERT INTO transactions
        (id, wallet_id, kind, amount, status, reference, sender_id, receiver_id,
         recipient_wallet_number, description, gateway_reference, checkout_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''), NULLIF($12, ''), $13)`,
		txID, walletID, string(tx.Kind), tx.Amount.String(), string(tx.Status), tx.Reference,
		tx.SenderID, tx.ReceiverID, tx.RecipientWalletNumber, tx.Description,
		tx.GatewayReference, tx.CheckoutURL, tx.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

const transactionColumns = `id, wallet_id, kind, amount::text, status, reference,
    COALESCE(sender_id::text, ''), COALESCE(receiver_id::text, ''),
    COALESCE(recipient_wallet_number, ''), COALESCE(description, ''),
    COALESCE(gateway_reference, ''), COALESCE(checkout_url, ''), created_at`

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		id      uuid.UUID
		userID  uuid.UUID
		balance string
		w       Wallet
	)
	if err := row.Scan(&id, &userID, &w.Number, &balance, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	bal, err := money.Parse(balance)
	if err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.Balance = bal
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		id       uuid.UUID
		walletID uuid.UUID
		kind     string
		amount   string
		status   string
		tx       Transaction
	)
	err := row.Scan(&id, &walletID, &kind, &amount, &status, &tx.Reference,
		&tx.SenderID, &tx.ReceiverID, &tx.RecipientWalletNumber, &tx.Description,
		&tx.GatewayReference, &tx.CheckoutURL, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	amt, err := money.Parse(amount)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.WalletID = walletID.String()
	tx.Kind = Kind(kind)
	tx.Amount = amt
	tx.Status = Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, nil
}
