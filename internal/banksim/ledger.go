/**
 * @description
 * The external bank simulator stands in for a partner bank. It keeps an authoritative
 * balance per account number and exposes deposit, withdraw and balance queries with an
 * artificial network delay and explicit failures. Account state lives behind the Ledger
 * interface so the simulator can run purely in memory or share state through Redis.
 */

package banksim

import (
	"context"
	"errors"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusFrozen   = "frozen"
	StatusClosed   = "closed"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotActive  = errors.New("account is not active")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAccount    = errors.New("account number is required")
	ErrInvalidStatus     = errors.New("unknown account status")
)

// Failure codes reported over HTTP so remote callers can tell failures apart.
const (
	CodeAccountNotFound   = "account_not_found"
	CodeAccountExists     = "account_exists"
	CodeAccountNotActive  = "account_not_active"
	CodeInvalidAmount     = "invalid_amount"
	CodeInsufficientFunds = "insufficient_funds"
	CodeInvalidRequest    = "invalid_request"
	CodeUnavailable       = "unavailable"
)

// Code maps a simulator error to its failure code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrAccountExists):
		return CodeAccountExists
	case errors.Is(err, ErrAccountNotActive):
		return CodeAccountNotActive
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrInvalidAccount), errors.Is(err, ErrInvalidStatus):
		return CodeInvalidRequest
	default:
		return CodeUnavailable
	}
}

// Account is the simulator's authoritative record for one external account.
type Account struct {
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName,omitempty"`
	Balance       int64  `json:"balance"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

// Ledger stores simulator accounts. Apply must check and mutate atomically.
type Ledger interface {
	Open(ctx context.Context, account Account) error
	Get(ctx context.Context, accountNumber string) (Account, error)
	// Apply adds delta to the balance of an active account and returns the new balance.
	// It fails with ErrInsufficientFunds when the result would be negative.
	Apply(ctx context.Context, accountNumber string, delta int64) (int64, error)
	SetStatus(ctx context.Context, accountNumber, status string) error
}
