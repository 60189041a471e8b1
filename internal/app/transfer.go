package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

const idempotencyStatePending = "pending"

var errTopUpInFlight = domain.NewKindError(domain.ErrConflict, "a top-up with this transactionRef is still being processed")

// idempotencyRecord is what the idempotency store keeps for a transactionRef.
type idempotencyRecord struct {
	Fingerprint string               `json:"fingerprint"`
	State       string               `json:"state"`
	Result      *domain.WalletResult `json:"result,omitempty"`
}

func topUpPaymentMethod(method string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(method)); m {
	case "":
		return domain.PaymentMethodUPI, nil
	case domain.PaymentMethodUPI, domain.PaymentMethodCard, domain.PaymentMethodBankAccount:
		return m, nil
	default:
		return "", domain.ErrUnsupportedType
	}
}

// TopUp credits the caller's wallet from an outside funding source. A non-empty
// transactionRef makes the call idempotent: repeating it returns the first result.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, req domain.TopUpRequest) (*domain.WalletResult, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	method, err := topUpPaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(req.TransactionRef)
	if ref == "" {
		return s.topUp(ctx, userID, req.Amount, method, "")
	}

	key := fmt.Sprintf("topup:%s:%s", userID, ref)
	fingerprint := fmt.Sprintf("%d|%s", req.Amount, method)
	if result, done, err := s.claimIdempotencyKey(ctx, key, fingerprint); err != nil || done {
		return result, err
	}

	result, err := s.topUp(ctx, userID, req.Amount, method, ref)
	if err != nil {
		if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
			log.Printf("level=warn component=orchestrator msg=\"failed to release idempotency key\" key=%s err=%v", key, delErr)
		}
		return nil, err
	}

	record, _ := json.Marshal(idempotencyRecord{Fingerprint: fingerprint, State: domain.TransactionStatusCompleted, Result: result})
	if err := s.idempotency.Set(ctx, key, string(record), s.opts.IdempotencyTTL); err != nil {
		log.Printf("level=warn component=orchestrator msg=\"failed to store idempotent result\" key=%s err=%v", key, err)
	}
	return result, nil
}

// claimIdempotencyKey reserves key for this request. done is true when a previous
// request with the same key already produced the returned result.
func (s *Service) claimIdempotencyKey(ctx context.Context, key, fingerprint string) (*domain.WalletResult, bool, error) {
	pending, _ := json.Marshal(idempotencyRecord{Fingerprint: fingerprint, State: idempotencyStatePending})
	claimed, err := s.idempotency.SetNX(ctx, key, string(pending), s.opts.IdempotencyTTL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if claimed {
		return nil, false, nil
	}

	raw, found, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if !found {
		// The earlier attempt failed and released the key between our two calls.
		return nil, true, errTopUpInFlight
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	if record.Fingerprint != fingerprint {
		return nil, true, domain.ErrIdempotencyConflict
	}
	if record.State == idempotencyStatePending || record.Result == nil {
		return nil, true, errTopUpInFlight
	}
	log.Printf("level=info component=orchestrator msg=\"replaying idempotent top-up\" key=%s transaction_id=%s", key, record.Result.Transaction.ID)
	return record.Result, true, nil
}

func (s *Service) topUp(ctx context.Context, userID uuid.UUID, amount int64, method, ref string) (*domain.WalletResult, error) {
	if _, err := s.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	var result *domain.WalletResult
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		wallets, err := q.LockWalletsByUserIDs(ctx, userID)
		if err != nil {
			return err
		}
		wallet := wallets[userID]
		newBalance, err := domain.CreditBalance(wallet.Balance, amount)
		if err != nil {
			return err
		}
		if err := q.UpdateWalletBalance(ctx, wallet.ID, newBalance); err != nil {
			return err
		}

		tx := &domain.Transaction{
			ID:          uuid.New(),
			UserID:      userID,
			Type:        domain.TransactionTypeDeposit,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: "Wallet top-up",
			Status:      domain.TransactionStatusCompleted,
			Metadata: domain.TransactionMetadata{
				PaymentMethod:  method,
				TransactionRef: ref,
				BalanceAfter:   &newBalance,
			},
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		title, message := topUpMessage(tx)
		if err := notifyTransaction(ctx, q, tx, title, message); err != nil {
			return err
		}
		result = &domain.WalletResult{NewBalance: newBalance, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"wallet topped up\" user_id=%s amount=%d transaction_id=%s", userID, amount, result.Transaction.ID)
	s.publishCompleted(ctx, result.Transaction)
	return result, nil
}

// Transfer moves money from the caller's wallet to another user's wallet.
func (s *Service) Transfer(ctx context.Context, senderID uuid.UUID, req domain.TransferRequest) (*domain.WalletResult, error) {
	return s.payWallet(ctx, senderID, req.RecipientIdentifier, req.Amount, req.Description, domain.TransactionTypeTransfer, domain.PaymentMethodWallet)
}

// QRPayment pays a merchant or user identified by a scanned QR code.
func (s *Service) QRPayment(ctx context.Context, senderID uuid.UUID, req domain.QRPaymentRequest) (*domain.WalletResult, error) {
	return s.payWallet(ctx, senderID, req.RecipientID, req.Amount, req.Description, domain.TransactionTypePayment, domain.PaymentMethodQR)
}

// payWallet is the wallet-to-wallet routine shared by transfers and QR payments. It
// writes exactly two transactions, the sender's debit and the recipient's credit.
func (s *Service) payWallet(ctx context.Context, senderID uuid.UUID, identifier string, amount int64, description, txType, method string) (*domain.WalletResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	recipientID, err := s.resolveRecipient(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if recipientID == senderID {
		return nil, domain.ErrSelfTransfer
	}
	if _, err := s.GetWallet(ctx, senderID); err != nil {
		return nil, err
	}

	senderName := s.displayName(ctx, senderID)
	recipientName := s.displayName(ctx, recipientID)
	description = strings.TrimSpace(description)

	var debit, credit *domain.Transaction
	var senderBalance int64
	err = s.repo.RunInTx(ctx, func(q store.Queries) error {
		wallets, err := q.LockWalletsByUserIDs(ctx, senderID, recipientID)
		if err != nil {
			return err
		}
		from, to := wallets[senderID], wallets[recipientID]
		if from.Currency != to.Currency {
			return domain.ErrCurrencyMismatch
		}
		if from.Balance < amount {
			return domain.NewKindError(domain.ErrInsufficientFunds, "insufficient wallet balance")
		}

		recipientBalance, err := domain.CreditBalance(to.Balance, amount)
		if err != nil {
			return err
		}
		senderBalance = from.Balance - amount
		if err := q.UpdateWalletBalance(ctx, from.ID, senderBalance); err != nil {
			return err
		}
		if err := q.UpdateWalletBalance(ctx, to.ID, recipientBalance); err != nil {
			return err
		}

		debit = &domain.Transaction{
			ID:          uuid.New(),
			UserID:      senderID,
			Type:        txType,
			Amount:      -amount,
			Currency:    from.Currency,
			Description: orDefault(description, "Sent to "+recipientName),
			Status:      domain.TransactionStatusCompleted,
			Metadata: domain.TransactionMetadata{
				PaymentMethod:      method,
				CounterpartyUserID: &recipientID,
				CounterpartyName:   recipientName,
				CounterpartyHandle: to.UPIID,
				BalanceAfter:       &senderBalance,
			},
		}
		credit = &domain.Transaction{
			ID:          uuid.New(),
			UserID:      recipientID,
			Type:        txType,
			Amount:      amount,
			Currency:    to.Currency,
			Description: orDefault(description, "Received from "+senderName),
			Status:      domain.TransactionStatusCompleted,
			Metadata: domain.TransactionMetadata{
				PaymentMethod:      method,
				CounterpartyUserID: &senderID,
				CounterpartyName:   senderName,
				CounterpartyHandle: from.UPIID,
				BalanceAfter:       &recipientBalance,
			},
		}
		for _, tx := range []*domain.Transaction{debit, credit} {
			if err := q.CreateTransaction(ctx, tx); err != nil {
				return fmt.Errorf("failed to record transaction: %w", err)
			}
		}

		title, message := sentMessage(debit, recipientName)
		if err := notifyTransaction(ctx, q, debit, title, message); err != nil {
			return err
		}
		title, message = receivedMessage(credit, senderName)
		return notifyTransaction(ctx, q, credit, title, message)
	})
	if err != nil {
		log.Printf("level=warn component=orchestrator msg=\"wallet transfer failed\" sender_id=%s recipient_id=%s amount=%d err=%v", senderID, recipientID, amount, err)
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"wallet transfer completed\" type=%s sender_id=%s recipient_id=%s amount=%d transaction_id=%s", txType, senderID, recipientID, amount, debit.ID)
	s.publishCompleted(ctx, debit, credit)
	return &domain.WalletResult{NewBalance: senderBalance, Transaction: debit}, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
