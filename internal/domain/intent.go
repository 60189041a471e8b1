package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transfer intent kinds.
const (
	IntentKindWalletToBank = "wallet_to_bank"
	IntentKindBankToWallet = "bank_to_wallet"
	IntentKindLedgerBank   = "ledger_bank"
)

// External directions, named after the simulator call that was made.
const (
	IntentDirectionDeposit  = "deposit"
	IntentDirectionWithdraw = "withdraw"
)

// Transfer intent statuses.
const (
	IntentStatusPending            = "pending"
	IntentStatusExternalSucceeded  = "external_succeeded"
	IntentStatusCompleted          = "completed"
	IntentStatusFailed             = "failed"
	IntentStatusCompensated        = "compensated"
	IntentStatusCompensationFailed = "compensation_failed"
)

// TransferIntent brackets an external bank call so that a local commit failure after
// external success can be reversed instead of leaving the two ledgers out of sync.
type TransferIntent struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Kind          string    `json:"kind"`
	BankAccountID uuid.UUID `json:"bank_account_id"`
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"`
	Direction     string    `json:"direction"`
	Status        string    `json:"status"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CompensatingDirection is the simulator call that undoes the intent's external effect.
func (i *TransferIntent) CompensatingDirection() string {
	if i.Direction == IntentDirectionDeposit {
		return IntentDirectionWithdraw
	}
	return IntentDirectionDeposit
}
