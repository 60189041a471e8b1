/**
 * @description
 * Error kinds shared by every layer of the wallet-service. Concrete errors wrap one of
 * these sentinels so the API layer can map them to HTTP status codes with errors.Is,
 * while Error() stays a plain sentence that is safe to show to the caller.
 */

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers bad or missing input, including non-positive amounts.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers missing wallets, bank accounts, users and transactions.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds is returned when an internal or external balance check fails.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnauthorized is returned when the transaction PIN does not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrExternalSystem is returned when the bank simulator reports a failure or is unreachable.
	ErrExternalSystem = errors.New("external system error")
	// ErrConflict is returned when an idempotency key is reused with a different request.
	ErrConflict = errors.New("conflict")
)

var (
	ErrInvalidAmount       = NewKindError(ErrValidation, "amount must be greater than zero")
	ErrBalanceLimit        = NewKindError(ErrValidation, "amount would exceed the maximum balance")
	ErrSelfTransfer        = NewKindError(ErrValidation, "cannot transfer money to yourself")
	ErrCurrencyMismatch    = NewKindError(ErrValidation, "currency mismatch between source and destination")
	ErrMissingRecipient    = NewKindError(ErrValidation, "recipient identifier is required")
	ErrBankAccountNotReady = NewKindError(ErrValidation, "bank account is not verified or not active")
	ErrUnsupportedType     = NewKindError(ErrValidation, "unsupported transaction type or payment method")
	ErrWalletNotEmpty      = NewKindError(ErrValidation, "wallet balance must be zero")
	ErrInvalidPINFormat    = NewKindError(ErrValidation, "transaction PIN must be 4 to 6 digits")

	ErrBankAccountHasBalance = NewKindError(ErrValidation, "cannot delete a bank account with a non-zero balance")
	ErrDefaultAccountInUse   = NewKindError(ErrValidation, "cannot delete the default bank account while other accounts are linked")

	ErrInvalidPIN = NewKindError(ErrUnauthorized, "invalid transaction PIN")
	ErrPINNotSet  = NewKindError(ErrUnauthorized, "transaction PIN has not been set")
	ErrPINLocked  = NewKindError(ErrUnauthorized, "too many failed PIN attempts, try again later")

	ErrIdempotencyConflict = NewKindError(ErrConflict, "transactionRef was already used for a different request")
	ErrBankAccountExists   = NewKindError(ErrConflict, "bank account is already linked")
)

// KindError is a caller-facing message tagged with one of the error kinds above.
type KindError struct {
	Kind    error
	Message string
}

// NewKindError builds a KindError for the given kind.
func NewKindError(kind error, message string) *KindError {
	return &KindError{Kind: kind, Message: message}
}

// Validationf is shorthand for a formatted ErrValidation.
func Validationf(format string, args ...interface{}) error {
	return NewKindError(ErrValidation, fmt.Sprintf(format, args...))
}

func (e *KindError) Error() string { return e.Message }

func (e *KindError) Unwrap() error { return e.Kind }

// ExternalError carries the message reported by the bank simulator. Code is the
// simulator's failure code when one was reported.
type ExternalError struct {
	Code    string
	Message string
}

func (e *ExternalError) Error() string {
	if e.Message == "" {
		return "external bank request failed"
	}
	return e.Message
}

func (e *ExternalError) Unwrap() error { return ErrExternalSystem }
