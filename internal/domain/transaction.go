package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeTransfer   = "transfer"
	TransactionTypePayment    = "payment"
	TransactionTypeBill       = "bill"
)

// Transaction statuses.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// Payment methods recorded in transaction metadata.
const (
	PaymentMethodWallet      = "wallet"
	PaymentMethodBankAccount = "bank_account"
	PaymentMethodUPI         = "upi"
	PaymentMethodQR          = "qr"
	PaymentMethodCard        = "card"
)

// IsTransactionType reports whether t is one of the known transaction types.
func IsTransactionType(t string) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer, TransactionTypePayment, TransactionTypeBill:
		return true
	}
	return false
}

// IsCreditType reports whether a transaction of type t adds money to the owner.
func IsCreditType(t string) bool {
	return t == TransactionTypeDeposit
}

// Transaction is an append-only ledger entry for one owner. Debits carry a negative
// Amount and credits a positive one.
type Transaction struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	Type        string              `json:"type"`
	Amount      int64               `json:"amount"`
	Currency    string              `json:"currency"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	Metadata    TransactionMetadata `json:"metadata"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TransactionMetadata records the counterparty and routing details of a transaction.
type TransactionMetadata struct {
	PaymentMethod        string     `json:"payment_method,omitempty"`
	CounterpartyUserID   *uuid.UUID `json:"counterparty_user_id,omitempty"`
	CounterpartyName     string     `json:"counterparty_name,omitempty"`
	CounterpartyHandle   string     `json:"counterparty_handle,omitempty"`
	BankAccountID        *uuid.UUID `json:"bank_account_id,omitempty"`
	BankName             string     `json:"bank_name,omitempty"`
	AccountNumberMasked  string     `json:"account_number_masked,omitempty"`
	TransactionRef       string     `json:"transaction_ref,omitempty"`
	IntentID             *uuid.UUID `json:"intent_id,omitempty"`
	CompensatesIntentID  *uuid.UUID `json:"compensates_intent_id,omitempty"`
	FailureReason        string     `json:"failure_reason,omitempty"`
	BalanceAfter         *int64     `json:"balance_after,omitempty"`
	ExternalBalanceAfter *int64     `json:"external_balance_after,omitempty"`
}

// TransactionFilter narrows transaction history queries.
type TransactionFilter struct {
	Type   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// TransactionSummaryItem aggregates a user's transactions of a single type.
type TransactionSummaryItem struct {
	Type         string `json:"type"`
	Count        int64  `json:"count"`
	TotalAmount  int64  `json:"total_amount"`
	CreditAmount int64  `json:"credit_amount"`
	DebitAmount  int64  `json:"debit_amount"`
}

// TransactionSummary is the aggregate view returned by the summary endpoint.
type TransactionSummary struct {
	From    *time.Time               `json:"from,omitempty"`
	To      *time.Time               `json:"to,omitempty"`
	Items   []TransactionSummaryItem `json:"items"`
	Credits int64                    `json:"total_credits"`
	Debits  int64                    `json:"total_debits"`
	Net     string                   `json:"net"`
}

// Notification types.
const (
	NotificationTypeTransaction = "transaction"
	NotificationTypeSecurity    = "security"
	NotificationTypeSystem      = "system"
)

// Notification is a write-once, user-visible record of a balance-affecting event.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Type          string     `json:"type"`
	IsRead        bool       `json:"is_read"`
	CreatedAt     time.Time  `json:"created_at"`
}
