package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

// minorUnitExponent converts minor units to major units for display.
const minorUnitExponent = -2

// formatAmount renders an unsigned minor-unit amount as "INR 1,250.00"-style text.
func formatAmount(amount int64, currency string) string {
	if amount < 0 {
		amount = -amount
	}
	return fmt.Sprintf("%s %s", currency, groupThousands(decimal.New(amount, minorUnitExponent).StringFixed(2)))
}

// majorUnits renders a signed minor-unit amount in major units without grouping.
func majorUnits(amount int64) string {
	return decimal.New(amount, minorUnitExponent).StringFixed(2)
}

func groupThousands(fixed string) string {
	whole, frac := fixed, ""
	for i := len(fixed) - 1; i >= 0; i-- {
		if fixed[i] == '.' {
			whole, frac = fixed[:i], fixed[i:]
			break
		}
	}
	if len(whole) <= 3 {
		return fixed
	}
	out := make([]byte, 0, len(whole)+len(whole)/3)
	lead := len(whole) % 3
	if lead > 0 {
		out = append(out, whole[:lead]...)
	}
	for i := lead; i < len(whole); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, whole[i:i+3]...)
	}
	return string(out) + frac
}

// notifyTransaction writes the notification for tx in the caller's atomic scope.
func notifyTransaction(ctx context.Context, q store.Queries, tx *domain.Transaction, title, message string) error {
	txID := tx.ID
	n := &domain.Notification{
		ID:            uuid.New(),
		UserID:        tx.UserID,
		TransactionID: &txID,
		Title:         title,
		Message:       message,
		Type:          domain.NotificationTypeTransaction,
	}
	if err := q.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func notifySecurity(ctx context.Context, q store.Queries, userID uuid.UUID, title, message string) error {
	n := &domain.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    domain.NotificationTypeSecurity,
	}
	if err := q.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func topUpMessage(tx *domain.Transaction) (string, string) {
	return "Money added", fmt.Sprintf("%s was added to your wallet.", formatAmount(tx.Amount, tx.Currency))
}

func sentMessage(tx *domain.Transaction, recipient string) (string, string) {
	title := "Money sent"
	if tx.Type == domain.TransactionTypePayment {
		title = "Payment sent"
	}
	return title, fmt.Sprintf("You sent %s to %s.", formatAmount(tx.Amount, tx.Currency), recipient)
}

func receivedMessage(tx *domain.Transaction, sender string) (string, string) {
	title := "Money received"
	if tx.Type == domain.TransactionTypePayment {
		title = "Payment received"
	}
	return title, fmt.Sprintf("You received %s from %s.", formatAmount(tx.Amount, tx.Currency), sender)
}

func bankTransferMessage(tx *domain.Transaction, account *domain.BankAccount) (string, string) {
	amount := formatAmount(tx.Amount, tx.Currency)
	target := fmt.Sprintf("%s %s", account.BankName, account.MaskedAccountNumber())
	if tx.Amount > 0 {
		return "Money added from bank", fmt.Sprintf("%s was moved from %s to your wallet.", amount, target)
	}
	return "Money sent to bank", fmt.Sprintf("%s was moved from your wallet to %s.", amount, target)
}

func ledgerMessage(tx *domain.Transaction) (string, string) {
	amount := formatAmount(tx.Amount, tx.Currency)
	if tx.Amount > 0 {
		return "Account credited", fmt.Sprintf("%s was credited: %s.", amount, tx.Description)
	}
	return "Account debited", fmt.Sprintf("%s was debited: %s.", amount, tx.Description)
}
