package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/kobo-vault/kobo_vault/internal/money"
)

var (
	// ErrWalletNotFound occurs when no wallet exists for the requested user or number.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound occurs when no transaction exists for the requested reference or id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds occurs when a debit would drive a wallet balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates the transaction reference already exists.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrInvalidTransition indicates a status change other than PENDING -> SUCCESS
	// or PENDING -> FAILED was attempted.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Kind labels the ledger entry types.
type Kind string

const (
	KindDeposit     Kind = "DEPOSIT"
	KindTransferOut Kind = "TRANSFER_OUT"
	KindTransferIn  Kind = "TRANSFER_IN"
)

// Status labels the transaction lifecycle states.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Wallet is the per-user balance record, addressable by a unique wallet number.
type Wallet struct {
	ID        string
	UserID    string
	Number    string
	Balance   money.Money
	CreatedAt time.Time
}

// Transaction is an immutable record of a balance-affecting event. A DEPOSIT
// entry's Reference doubles as the settlement idempotency key.
type Transaction struct {
	ID                    string
	WalletID              string
	Kind                  Kind
	Amount                money.Money
	Status                Status
	Reference             string
	SenderID              string
	ReceiverID            string
	RecipientWalletNumber string
	Description           string
	GatewayReference      string
	CheckoutURL           string
	CreatedAt             time.Time
}

// SettleResult captures the outcome of a deposit settlement.
type SettleResult struct {
	Transaction    Transaction
	WalletBalance  money.Money
	AlreadySettled bool
}

// TransferPosting describes the paired entries of a wallet-to-wallet transfer.
// Out debits its wallet, In credits its wallet; both carry the same amount and
// counterparty identifiers.
type TransferPosting struct {
	Out Transaction
	In  Transaction
}

// TransferResult reports the post-transfer balances.
type TransferResult struct {
	FromBalance money.Money
	ToBalance   money.Money
}

// Store is the contract implemented by ledger backends (Postgres, in-memory).
//
// Credit and Debit are atomic per wallet: the non-negative balance guard and
// the mutation happen as one step, serialized against concurrent mutations of
// the same wallet. SettleDeposit and Transfer are composite atomic units; all
// of their effects commit together or none do.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	WalletByUser(ctx context.Context, userID string) (Wallet, error)
	WalletByNumber(ctx context.Context, number string) (Wallet, error)
	Credit(ctx context.Context, walletID string, amount money.Money) (money.Money, error)
	Debit(ctx context.Context, walletID string, amount money.Money) (money.Money, error)

	CreateTransaction(ctx context.Context, tx Transaction) error
	TransactionByReference(ctx context.Context, reference string) (Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status Status) error
	AttachGatewayDetails(ctx context.Context, id, gatewayReference, checkoutURL string) error
	TransactionsByWallet(ctx context.Context, walletID string) ([]Transaction, error)

	// SettleDeposit flips the referenced PENDING deposit to SUCCESS and credits
	// the owning wallet by the settled amount in one unit. Replays against an
	// already-SUCCESS reference return AlreadySettled without mutating state.
	SettleDeposit(ctx context.Context, reference string, amount money.Money) (SettleResult, error)

	// Transfer debits the Out wallet, credits the In wallet and appends both
	// entries as a single unit.
	Transfer(ctx context.Context, posting TransferPosting) (TransferResult, error)
}
