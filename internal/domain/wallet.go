/**
 * @description
 * Core ledger entities of the wallet-service: users (read model), wallets, linked bank
 * account mirrors and transaction PIN credentials.
 *
 * @notes
 * - Amounts are int64 minor units (paise/kobo); floating point never touches a balance.
 * - BankAccount.Balance is a cache of the external bank's authoritative balance.
 */

package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// CreditBalance returns balance+amount, or ErrBalanceLimit when the sum does not fit.
func CreditBalance(balance, amount int64) (int64, error) {
	if amount > 0 && balance > math.MaxInt64-amount {
		return balance, ErrBalanceLimit
	}
	return balance + amount, nil
}

// User is the subset of the identity collaborator's user record the ledger needs.
type User struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Email       *string   `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Wallet is the internal custodial balance owned 1:1 by a user.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	UPIID     string    `json:"upi_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bank account statuses.
const (
	BankAccountActive   = "active"
	BankAccountInactive = "inactive"
	BankAccountFrozen   = "frozen"
	BankAccountClosed   = "closed"
)

// BankAccount mirrors an externally linked bank account.
type BankAccount struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	BankName          string    `json:"bank_name"`
	AccountHolderName string    `json:"account_holder_name"`
	AccountNumber     string    `json:"account_number"`
	IFSCCode          string    `json:"ifsc_code"`
	AccountType       string    `json:"account_type"`
	Currency          string    `json:"currency"`
	Balance           int64     `json:"balance"`
	IsVerified        bool      `json:"is_verified"`
	IsDefault         bool      `json:"is_default"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CanTransact reports whether the mirror may take part in a money movement.
func (b *BankAccount) CanTransact() bool {
	return b.IsVerified && b.Status == BankAccountActive
}

// MaskedAccountNumber shows only the last four digits.
func (b *BankAccount) MaskedAccountNumber() string {
	n := len(b.AccountNumber)
	if n <= 4 {
		return "****"
	}
	return "****" + b.AccountNumber[n-4:]
}

// UserSecurityCredential stores the transaction PIN hash and lockout state.
type UserSecurityCredential struct {
	UserID             uuid.UUID  `json:"user_id"`
	TransactionPINHash string     `json:"-"`
	FailedAttempts     int        `json:"failed_attempts"`
	LockedUntil        *time.Time `json:"locked_until,omitempty"`
}
