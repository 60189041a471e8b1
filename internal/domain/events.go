package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys used on the events exchange.
const (
	RoutingKeyUserCreated          = "user.created"
	RoutingKeyTransactionCompleted = "wallet.transaction.completed"
)

// UserCreatedEvent is consumed from the identity collaborator to provision a wallet.
type UserCreatedEvent struct {
	UserID      uuid.UUID `json:"user_id"`
	FullName    string    `json:"full_name"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Email       *string   `json:"email,omitempty"`
}

// TransactionCompletedEvent is published after a ledger write commits.
type TransactionCompletedEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewTransactionCompletedEvent builds the event payload for a committed transaction.
func NewTransactionCompletedEvent(tx *Transaction) TransactionCompletedEvent {
	return TransactionCompletedEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		PaymentMethod: tx.Metadata.PaymentMethod,
		OccurredAt:    tx.CreatedAt,
	}
}
