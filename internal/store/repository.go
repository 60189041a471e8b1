/**
 * @description
 * This file defines the persistence contract of the wallet-service ledger. Every
 * money-moving operation runs its reads-for-update, balance writes and Transaction and
 * Notification inserts through Queries inside a single RunInTx call.
 *
 * @dependencies
 * - internal/domain: Ledger entities and error kinds.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
)

var (
	ErrUserNotFound            = domain.NewKindError(domain.ErrNotFound, "user not found")
	ErrWalletNotFound          = domain.NewKindError(domain.ErrNotFound, "wallet not found")
	ErrBankAccountNotFound     = domain.NewKindError(domain.ErrNotFound, "bank account not found")
	ErrTransactionNotFound     = domain.NewKindError(domain.ErrNotFound, "transaction not found")
	ErrIntentNotFound          = domain.NewKindError(domain.ErrNotFound, "transfer intent not found")
	ErrTransactionPINNotSet    = domain.ErrPINNotSet
	ErrDuplicateBankAccount    = domain.ErrBankAccountExists
	ErrDefaultBankAccountTaken = domain.NewKindError(domain.ErrConflict, "user already has a default bank account")
)

// Queries is the set of ledger operations. Implementations returned inside RunInTx
// share one atomic scope.
type Queries interface {
	UpsertUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	// LockUser locks the user row, serialising per-user writes such as bank account links.
	LockUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)

	// CreateWallet inserts the wallet unless the user already has one and returns the
	// stored row either way.
	CreateWallet(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error)
	FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	FindWalletByUPIID(ctx context.Context, upiID string) (*domain.Wallet, error)
	// LockWalletsByUserIDs locks the wallets of all given users in ascending user id order.
	LockWalletsByUserIDs(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID uuid.UUID, balance int64) error

	CreateBankAccount(ctx context.Context, account *domain.BankAccount) error
	FindBankAccountByID(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error)
	LockBankAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]domain.BankAccount, error)
	ClearDefaultBankAccounts(ctx context.Context, userID uuid.UUID) error
	SetBankAccountDefault(ctx context.Context, userID, accountID uuid.UUID) error
	UpdateBankAccountBalance(ctx context.Context, accountID uuid.UUID, balance int64) error
	UpdateBankAccountVerification(ctx context.Context, accountID uuid.UUID, verified bool, status string, balance int64) error
	DeleteBankAccount(ctx context.Context, userID, accountID uuid.UUID) error

	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactionByID(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error)
	SummarizeTransactions(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]domain.TransactionSummaryItem, error)

	CreateNotification(ctx context.Context, notification *domain.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error)

	GetUserSecurityCredentialByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSecurityCredential, error)
	UpsertTransactionPIN(ctx context.Context, userID uuid.UUID, pinHash string) error
	RecordFailedTransactionPINAttempt(ctx context.Context, userID uuid.UUID, maxAttempts int, lockoutDurationSeconds int) (*domain.UserSecurityCredential, error)
	ResetTransactionPINFailureState(ctx context.Context, userID uuid.UUID) error

	CreateTransferIntent(ctx context.Context, intent *domain.TransferIntent) error
	LockTransferIntent(ctx context.Context, intentID uuid.UUID) (*domain.TransferIntent, error)
	// TransitionTransferIntent moves the intent to status only while its current status is
	// one of from, and reports whether it did.
	TransitionTransferIntent(ctx context.Context, intentID uuid.UUID, from []string, status string, failureReason *string) (bool, error)
	// ListStaleTransferIntents returns unresolved intents last touched before cutoff.
	ListStaleTransferIntents(ctx context.Context, cutoff time.Time, limit int) ([]domain.TransferIntent, error)
}

// Repository is the ledger store. Outside RunInTx every query runs in its own scope.
type Repository interface {
	Queries
	// RunInTx runs fn in one atomic scope, committing when fn returns nil and rolling
	// back otherwise.
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}

// OpenIntentStatuses are the intent statuses the reconciliation sweep acts on.
var OpenIntentStatuses = []string{
	domain.IntentStatusPending,
	domain.IntentStatusExternalSucceeded,
	domain.IntentStatusCompensationFailed,
}
