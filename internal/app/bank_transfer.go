/**
 * @description
 * Bank-routed transfers. Each one records a TransferIntent, calls the external bank, and
 * then commits the local side together with the intent's completion. When the local
 * commit fails after the bank has already moved money, the bank call is reversed and the
 * intent is marked compensated, or compensation_failed for the reconciliation sweep.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

const compensationTimeout = 15 * time.Second

var (
	errIntentAlreadyResolved = domain.NewKindError(domain.ErrConflict, "transfer was resolved by reconciliation before it could complete")
	errIntentAbandoned       = domain.NewKindError(domain.ErrConflict, "transfer timed out before the bank confirmed it and was reversed")
)

// reversibleIntentStatuses are the statuses a request may claim for reversal after its
// own bank call went through.
var reversibleIntentStatuses = []string{
	domain.IntentStatusPending,
	domain.IntentStatusExternalSucceeded,
	domain.IntentStatusFailed,
}

// bankLeg describes one external movement of money.
type bankLeg struct {
	userID    uuid.UUID
	account   *domain.BankAccount
	kind      string
	direction string
	amount    int64
}

// TransferToBank moves money from the caller's wallet into one of their linked bank accounts.
func (s *Service) TransferToBank(ctx context.Context, userID uuid.UUID, req domain.BankTransferRequest) (*domain.BankTransferResult, error) {
	account, wallet, err := s.prepareBankTransfer(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	leg := bankLeg{userID: userID, account: account, kind: domain.IntentKindWalletToBank, direction: domain.IntentDirectionDeposit, amount: req.Amount}
	checkFunds := func(q store.Queries) error {
		wallets, err := q.LockWalletsByUserIDs(ctx, userID)
		if err != nil {
			return err
		}
		if wallets[userID].Balance < req.Amount {
			return domain.NewKindError(domain.ErrInsufficientFunds, "insufficient wallet balance")
		}
		return nil
	}

	var result *domain.BankTransferResult
	err = s.executeBankLeg(ctx, leg, checkFunds, func(q store.Queries, intent *domain.TransferIntent, externalBalance int64) error {
		wallets, err := q.LockWalletsByUserIDs(ctx, userID)
		if err != nil {
			return err
		}
		current := wallets[userID]
		if current.Balance < req.Amount {
			return domain.NewKindError(domain.ErrInsufficientFunds, "insufficient wallet balance")
		}
		newBalance := current.Balance - req.Amount
		if err := q.UpdateWalletBalance(ctx, current.ID, newBalance); err != nil {
			return err
		}
		if err := q.UpdateBankAccountBalance(ctx, account.ID, externalBalance); err != nil {
			return err
		}

		tx := bankTransaction(userID, domain.TransactionTypeWithdrawal, -req.Amount, wallet.Currency, "Transfer to "+account.BankName, account, intent)
		tx.Metadata.BalanceAfter = &newBalance
		tx.Metadata.ExternalBalanceAfter = &externalBalance
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		title, message := bankTransferMessage(tx, account)
		if err := notifyTransaction(ctx, q, tx, title, message); err != nil {
			return err
		}
		result = &domain.BankTransferResult{NewWalletBalance: newBalance, NewBankAccountBalance: externalBalance, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"wallet to bank transfer completed\" user_id=%s bank_account_id=%s amount=%d transaction_id=%s", userID, account.ID, req.Amount, result.Transaction.ID)
	s.publishCompleted(ctx, result.Transaction)
	return result, nil
}

// TransferFromBank pulls money from one of the caller's linked bank accounts into their
// wallet. External sufficiency is enforced by the bank.
func (s *Service) TransferFromBank(ctx context.Context, userID uuid.UUID, req domain.BankTransferRequest) (*domain.BankTransferResult, error) {
	account, wallet, err := s.prepareBankTransfer(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if _, err := domain.CreditBalance(wallet.Balance, req.Amount); err != nil {
		return nil, err
	}

	leg := bankLeg{userID: userID, account: account, kind: domain.IntentKindBankToWallet, direction: domain.IntentDirectionWithdraw, amount: req.Amount}

	var result *domain.BankTransferResult
	err = s.executeBankLeg(ctx, leg, nil, func(q store.Queries, intent *domain.TransferIntent, externalBalance int64) error {
		wallets, err := q.LockWalletsByUserIDs(ctx, userID)
		if err != nil {
			return err
		}
		current := wallets[userID]
		newBalance, err := domain.CreditBalance(current.Balance, req.Amount)
		if err != nil {
			return err
		}
		if err := q.UpdateWalletBalance(ctx, current.ID, newBalance); err != nil {
			return err
		}
		if err := q.UpdateBankAccountBalance(ctx, account.ID, externalBalance); err != nil {
			return err
		}

		tx := bankTransaction(userID, domain.TransactionTypeDeposit, req.Amount, wallet.Currency, "Transfer from "+account.BankName, account, intent)
		tx.Metadata.BalanceAfter = &newBalance
		tx.Metadata.ExternalBalanceAfter = &externalBalance
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		title, message := bankTransferMessage(tx, account)
		if err := notifyTransaction(ctx, q, tx, title, message); err != nil {
			return err
		}
		result = &domain.BankTransferResult{NewWalletBalance: newBalance, NewBankAccountBalance: externalBalance, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"bank to wallet transfer completed\" user_id=%s bank_account_id=%s amount=%d transaction_id=%s", userID, account.ID, req.Amount, result.Transaction.ID)
	s.publishCompleted(ctx, result.Transaction)
	return result, nil
}

// prepareBankTransfer runs the shared preconditions in order: validation, existence,
// verification and currency.
func (s *Service) prepareBankTransfer(ctx context.Context, userID uuid.UUID, req domain.BankTransferRequest) (*domain.BankAccount, *domain.Wallet, error) {
	if req.Amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	if req.AccountID == uuid.Nil {
		return nil, nil, domain.Validationf("accountId is required")
	}
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.repo.FindBankAccountByID(ctx, userID, req.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if !account.CanTransact() {
		return nil, nil, domain.ErrBankAccountNotReady
	}
	if account.Currency != wallet.Currency {
		return nil, nil, domain.ErrCurrencyMismatch
	}
	return account, wallet, nil
}

// LedgerTransaction applies a generic credit or debit on behalf of another service. With
// payment method "wallet" it moves the wallet balance; with "bank_account" it routes
// through the external bank and refreshes the mirror from the bank's reply.
func (s *Service) LedgerTransaction(ctx context.Context, req domain.LedgerTransactionRequest) (*domain.LedgerTransactionResult, error) {
	txType := strings.ToLower(strings.TrimSpace(req.Type))
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	switch {
	case req.UserID == uuid.Nil:
		return nil, domain.Validationf("userId is required")
	case !domain.IsTransactionType(txType):
		return nil, domain.ErrUnsupportedType
	case req.Amount <= 0:
		return nil, domain.ErrInvalidAmount
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = strings.ToUpper(txType[:1]) + txType[1:]
	}

	switch method {
	case domain.PaymentMethodWallet:
		return s.ledgerWalletTransaction(ctx, req.UserID, txType, req.Amount, description)
	case domain.PaymentMethodBankAccount:
		if req.BankAccountID == nil || *req.BankAccountID == uuid.Nil {
			return nil, domain.Validationf("bankAccountId is required for bank_account transactions")
		}
		return s.ledgerBankTransaction(ctx, req.UserID, *req.BankAccountID, txType, req.Amount, description)
	default:
		return nil, domain.ErrUnsupportedType
	}
}

func signedAmount(txType string, amount int64) int64 {
	if domain.IsCreditType(txType) {
		return amount
	}
	return -amount
}

func (s *Service) ledgerWalletTransaction(ctx context.Context, userID uuid.UUID, txType string, amount int64, description string) (*domain.LedgerTransactionResult, error) {
	if _, err := s.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	delta := signedAmount(txType, amount)
	var result *domain.LedgerTransactionResult
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		wallets, err := q.LockWalletsByUserIDs(ctx, userID)
		if err != nil {
			return err
		}
		wallet := wallets[userID]
		if wallet.Balance+delta < 0 {
			return domain.NewKindError(domain.ErrInsufficientFunds, "insufficient wallet balance")
		}
		newBalance, err := domain.CreditBalance(wallet.Balance, delta)
		if err != nil {
			return err
		}
		if err := q.UpdateWalletBalance(ctx, wallet.ID, newBalance); err != nil {
			return err
		}

		tx := &domain.Transaction{
			ID:          uuid.New(),
			UserID:      userID,
			Type:        txType,
			Amount:      delta,
			Currency:    wallet.Currency,
			Description: description,
			Status:      domain.TransactionStatusCompleted,
			Metadata: domain.TransactionMetadata{
				PaymentMethod: domain.PaymentMethodWallet,
				BalanceAfter:  &newBalance,
			},
		}
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		title, message := ledgerMessage(tx)
		if err := notifyTransaction(ctx, q, tx, title, message); err != nil {
			return err
		}
		result = &domain.LedgerTransactionResult{Transaction: tx, NewWalletBalance: &newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"ledger transaction applied\" user_id=%s type=%s method=wallet amount=%d", userID, txType, delta)
	s.publishCompleted(ctx, result.Transaction)
	return result, nil
}

func (s *Service) ledgerBankTransaction(ctx context.Context, userID, accountID uuid.UUID, txType string, amount int64, description string) (*domain.LedgerTransactionResult, error) {
	account, err := s.repo.FindBankAccountByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.CanTransact() {
		return nil, domain.ErrBankAccountNotReady
	}

	direction := domain.IntentDirectionWithdraw
	if domain.IsCreditType(txType) {
		direction = domain.IntentDirectionDeposit
	}
	leg := bankLeg{userID: userID, account: account, kind: domain.IntentKindLedgerBank, direction: direction, amount: amount}

	var result *domain.LedgerTransactionResult
	err = s.executeBankLeg(ctx, leg, nil, func(q store.Queries, intent *domain.TransferIntent, externalBalance int64) error {
		if err := q.UpdateBankAccountBalance(ctx, account.ID, externalBalance); err != nil {
			return err
		}
		tx := bankTransaction(userID, txType, signedAmount(txType, amount), account.Currency, description, account, intent)
		tx.Metadata.ExternalBalanceAfter = &externalBalance
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		title, message := ledgerMessage(tx)
		if err := notifyTransaction(ctx, q, tx, title, message); err != nil {
			return err
		}
		result = &domain.LedgerTransactionResult{Transaction: tx, NewBankAccountBalance: &externalBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"ledger transaction applied\" user_id=%s type=%s method=bank_account bank_account_id=%s amount=%d", userID, txType, account.ID, amount)
	s.publishCompleted(ctx, result.Transaction)
	return result, nil
}

func bankTransaction(userID uuid.UUID, txType string, amount int64, currency, description string, account *domain.BankAccount, intent *domain.TransferIntent) *domain.Transaction {
	accountID := account.ID
	intentID := intent.ID
	return &domain.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Status:      domain.TransactionStatusCompleted,
		Metadata: domain.TransactionMetadata{
			PaymentMethod:       domain.PaymentMethodBankAccount,
			BankAccountID:       &accountID,
			BankName:            account.BankName,
			AccountNumberMasked: account.MaskedAccountNumber(),
			IntentID:            &intentID,
		},
	}
}

// executeBankLeg runs the intent, external call and local commit for one bank movement.
// precheck, when set, runs in the same atomic scope that records the intent.
func (s *Service) executeBankLeg(
	ctx context.Context,
	leg bankLeg,
	precheck func(q store.Queries) error,
	commit func(q store.Queries, intent *domain.TransferIntent, externalBalance int64) error,
) error {
	intent := &domain.TransferIntent{
		ID:            uuid.New(),
		UserID:        leg.userID,
		Kind:          leg.kind,
		BankAccountID: leg.account.ID,
		AccountNumber: leg.account.AccountNumber,
		Amount:        leg.amount,
		Direction:     leg.direction,
		Status:        domain.IntentStatusPending,
	}
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		if precheck != nil {
			if err := precheck(q); err != nil {
				return err
			}
		}
		return q.CreateTransferIntent(ctx, intent)
	})
	if err != nil {
		return err
	}

	externalBalance, err := s.callBank(ctx, leg.direction, leg.account.AccountNumber, leg.amount)
	if err != nil {
		log.Printf("level=warn component=orchestrator msg=\"bank call failed\" intent_id=%s direction=%s amount=%d err=%v", intent.ID, leg.direction, leg.amount, err)
		_, _ = s.transitionIntent(ctx, intent.ID, []string{domain.IntentStatusPending}, domain.IntentStatusFailed, err.Error())
		return err
	}

	// The sweep may have failed the intent while the bank call was in flight.
	advanced, err := s.transitionIntent(ctx, intent.ID, []string{domain.IntentStatusPending}, domain.IntentStatusExternalSucceeded, "")
	if err == nil && !advanced {
		log.Printf("level=warn component=orchestrator msg=\"intent resolved while bank call was in flight; compensating\" intent_id=%s", intent.ID)
		s.compensate(ctx, intent, errIntentAbandoned)
		return errIntentAbandoned
	}

	err = s.repo.RunInTx(ctx, func(q store.Queries) error {
		current, err := q.LockTransferIntent(ctx, intent.ID)
		if err != nil {
			return err
		}
		switch current.Status {
		case domain.IntentStatusPending, domain.IntentStatusExternalSucceeded:
		case domain.IntentStatusFailed:
			return errIntentAbandoned
		default:
			return errIntentAlreadyResolved
		}
		if err := commit(q, intent, externalBalance); err != nil {
			return err
		}
		completed, err := q.TransitionTransferIntent(ctx, intent.ID,
			[]string{domain.IntentStatusPending, domain.IntentStatusExternalSucceeded}, domain.IntentStatusCompleted, nil)
		if err != nil {
			return err
		}
		if !completed {
			return errIntentAlreadyResolved
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errIntentAlreadyResolved) {
			return err
		}
		log.Printf("level=error component=orchestrator msg=\"local commit failed after bank success; compensating\" intent_id=%s err=%v", intent.ID, err)
		s.compensate(ctx, intent, err)
		return err
	}
	return nil
}

func (s *Service) callBank(ctx context.Context, direction, accountNumber string, amount int64) (int64, error) {
	if direction == domain.IntentDirectionDeposit {
		return s.bank.Deposit(ctx, accountNumber, amount)
	}
	return s.bank.Withdraw(ctx, accountNumber, amount)
}

// compensate claims intent for reversal and reverses its external effect. It runs detached
// from the request context so a cancelled request still gets its reversal.
func (s *Service) compensate(ctx context.Context, intent *domain.TransferIntent, cause error) bool {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	reason := cause.Error()
	claimed, err := s.transitionIntent(cctx, intent.ID, reversibleIntentStatuses, domain.IntentStatusCompensationFailed, reason)
	if err != nil || !claimed {
		log.Printf("level=warn component=orchestrator msg=\"intent not claimable for compensation\" intent_id=%s", intent.ID)
		return false
	}
	return s.reverse(cctx, intent, reason)
}

// reverse undoes the bank movement of an intent already claimed as compensation_failed.
// A crash part way through leaves it claimed, so the sweep retries it.
func (s *Service) reverse(ctx context.Context, intent *domain.TransferIntent, reason string) bool {
	claimed := []string{domain.IntentStatusCompensationFailed}
	balance, err := s.callBank(ctx, intent.CompensatingDirection(), intent.AccountNumber, intent.Amount)
	if err != nil {
		log.Printf("level=error component=orchestrator msg=\"compensation failed\" intent_id=%s account=%s amount=%d err=%v", intent.ID, maskAccountNumber(intent.AccountNumber), intent.Amount, err)
		_, _ = s.transitionIntent(ctx, intent.ID, claimed, domain.IntentStatusCompensationFailed, fmt.Sprintf("%s; compensation failed: %v", reason, err))
		return false
	}

	if err := s.repo.UpdateBankAccountBalance(ctx, intent.BankAccountID, balance); err != nil && !errors.Is(err, store.ErrBankAccountNotFound) {
		log.Printf("level=warn component=orchestrator msg=\"failed to refresh bank mirror after compensation\" intent_id=%s err=%v", intent.ID, err)
	}
	_, _ = s.transitionIntent(ctx, intent.ID, claimed, domain.IntentStatusCompensated, reason)
	s.recordReversal(ctx, intent, reason)
	log.Printf("level=warn component=orchestrator msg=\"bank transfer compensated\" intent_id=%s direction=%s amount=%d", intent.ID, intent.CompensatingDirection(), intent.Amount)
	return true
}

// recordReversal appends a cancelled transaction and a notification so the owner can see
// the bank movement that was undone. No balance changes with it.
func (s *Service) recordReversal(ctx context.Context, intent *domain.TransferIntent, reason string) {
	txType := domain.TransactionTypeWithdrawal
	amount := -intent.Amount
	if intent.Kind == domain.IntentKindBankToWallet || (intent.Kind == domain.IntentKindLedgerBank && intent.Direction == domain.IntentDirectionDeposit) {
		txType = domain.TransactionTypeDeposit
		amount = intent.Amount
	}

	account, err := s.repo.FindBankAccountByID(ctx, intent.UserID, intent.BankAccountID)
	if err != nil {
		account = &domain.BankAccount{ID: intent.BankAccountID, AccountNumber: intent.AccountNumber, Currency: s.opts.DefaultCurrency, BankName: "your bank"}
	}

	err = s.repo.RunInTx(ctx, func(q store.Queries) error {
		tx := bankTransaction(intent.UserID, txType, amount, account.Currency, "Reversed bank transfer", account, intent)
		tx.Status = domain.TransactionStatusCancelled
		tx.Metadata.IntentID = nil
		tx.Metadata.CompensatesIntentID = &intent.ID
		tx.Metadata.FailureReason = reason
		if err := q.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		return notifyTransaction(ctx, q, tx, "Bank transfer reversed",
			fmt.Sprintf("Your transfer of %s with %s %s could not be completed and was reversed.", formatAmount(intent.Amount, account.Currency), account.BankName, account.MaskedAccountNumber()))
	})
	if err != nil {
		log.Printf("level=error component=orchestrator msg=\"failed to record reversal\" intent_id=%s err=%v", intent.ID, err)
	}
}

func (s *Service) transitionIntent(ctx context.Context, intentID uuid.UUID, from []string, status, reason string) (bool, error) {
	var failure *string
	if reason != "" {
		failure = &reason
	}
	changed, err := s.repo.TransitionTransferIntent(context.WithoutCancel(ctx), intentID, from, status, failure)
	if err != nil {
		log.Printf("level=error component=orchestrator msg=\"failed to update transfer intent\" intent_id=%s status=%s err=%v", intentID, status, err)
		return false, err
	}
	if !changed {
		log.Printf("level=info component=orchestrator msg=\"transfer intent already moved on\" intent_id=%s status=%s", intentID, status)
	}
	return changed, nil
}

func maskAccountNumber(number string) string {
	return (&domain.BankAccount{AccountNumber: number}).MaskedAccountNumber()
}
