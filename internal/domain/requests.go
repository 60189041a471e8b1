/**
 * @description
 * Request and response payloads for the wallet-service HTTP API. Amounts are always
 * expressed in minor units.
 */

package domain

import "github.com/google/uuid"

// TopUpRequest is the body of POST /wallet/add-money.
type TopUpRequest struct {
	Amount         int64  `json:"amount"`
	PaymentMethod  string `json:"paymentMethod"`
	TransactionRef string `json:"transactionRef,omitempty"`
}

// TransferRequest is the body of POST /wallet/transfer.
type TransferRequest struct {
	RecipientIdentifier string `json:"recipientIdentifier"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description,omitempty"`
	TransactionPIN      string `json:"pin"`
}

// QRPaymentRequest is the body of POST /wallet/qr-payment. RecipientID carries either a
// user id or the payment handle scanned from the QR code.
type QRPaymentRequest struct {
	RecipientID    string `json:"recipientId"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description,omitempty"`
	TransactionPIN string `json:"pin"`
}

// BankTransferRequest is the body of POST /wallet/transfer-to-bank and /wallet/transfer-from-bank.
type BankTransferRequest struct {
	AccountID      uuid.UUID `json:"accountId"`
	Amount         int64     `json:"amount"`
	TransactionPIN string    `json:"pin"`
}

// LedgerTransactionRequest is the body of POST /internal/ledger-transactions.
type LedgerTransactionRequest struct {
	UserID        uuid.UUID  `json:"userId"`
	Type          string     `json:"type"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"paymentMethod"`
	BankAccountID *uuid.UUID `json:"bankAccountId,omitempty"`
	Description   string     `json:"description"`
}

// LinkBankAccountRequest is the body of POST /bank-accounts.
type LinkBankAccountRequest struct {
	BankName          string `json:"bankName"`
	AccountHolderName string `json:"accountHolderName"`
	AccountNumber     string `json:"accountNumber"`
	IFSCCode          string `json:"ifscCode"`
	AccountType       string `json:"accountType"`
	Currency          string `json:"currency,omitempty"`
	IsDefault         bool   `json:"isDefault"`
}

// SetPINRequest is the body of PUT /wallet/pin.
type SetPINRequest struct {
	CurrentPIN string `json:"currentPin,omitempty"`
	PIN        string `json:"pin"`
}

// ProvisionWalletRequest is the body of POST /internal/wallets.
type ProvisionWalletRequest struct {
	UserID      uuid.UUID `json:"userId"`
	FullName    string    `json:"fullName"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	Email       *string   `json:"email,omitempty"`
}

// WalletResult is returned by single-sided wallet operations.
type WalletResult struct {
	NewBalance  int64        `json:"newBalance"`
	Transaction *Transaction `json:"transaction"`
}

// BankTransferResult is returned by wallet<->bank operations.
type BankTransferResult struct {
	NewWalletBalance      int64        `json:"newWalletBalance"`
	NewBankAccountBalance int64        `json:"newBankAccountBalance"`
	Transaction           *Transaction `json:"transaction"`
}

// LedgerTransactionResult is returned by the internal ledger transaction endpoint.
type LedgerTransactionResult struct {
	Transaction           *Transaction `json:"transaction"`
	NewWalletBalance      *int64       `json:"newWalletBalance,omitempty"`
	NewBankAccountBalance *int64       `json:"newBankAccountBalance,omitempty"`
}

// BankBalanceResult is returned by the bank account sync and balance endpoints.
type BankBalanceResult struct {
	AccountID uuid.UUID `json:"accountId"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
}
