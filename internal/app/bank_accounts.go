package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

const (
	accountTypeSavings = "savings"
	accountTypeCurrent = "current"
)

func normaliseLinkRequest(req domain.LinkBankAccountRequest, defaultCurrency string) (domain.LinkBankAccountRequest, error) {
	req.BankName = strings.TrimSpace(req.BankName)
	req.AccountHolderName = strings.TrimSpace(req.AccountHolderName)
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.IFSCCode = strings.ToUpper(strings.TrimSpace(req.IFSCCode))
	req.AccountType = strings.ToLower(strings.TrimSpace(req.AccountType))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	switch {
	case req.BankName == "":
		return req, domain.Validationf("bankName is required")
	case req.AccountHolderName == "":
		return req, domain.Validationf("accountHolderName is required")
	case len(req.AccountNumber) < 6 || len(req.AccountNumber) > 20 || strings.Trim(req.AccountNumber, "0123456789") != "":
		return req, domain.Validationf("accountNumber must be 6 to 20 digits")
	}
	switch req.AccountType {
	case "":
		req.AccountType = accountTypeSavings
	case accountTypeSavings, accountTypeCurrent:
	default:
		return req, domain.Validationf("accountType must be savings or current")
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}
	return req, nil
}

// LinkBankAccount records a bank account for the caller and verifies it against the
// external bank. Accounts the bank does not know are stored unverified.
func (s *Service) LinkBankAccount(ctx context.Context, userID uuid.UUID, req domain.LinkBankAccountRequest) (*domain.BankAccount, error) {
	req, err := normaliseLinkRequest(req, s.opts.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}

	account := &domain.BankAccount{
		ID:                uuid.New(),
		UserID:            userID,
		BankName:          req.BankName,
		AccountHolderName: req.AccountHolderName,
		AccountNumber:     req.AccountNumber,
		IFSCCode:          req.IFSCCode,
		AccountType:       req.AccountType,
		Currency:          req.Currency,
		Status:            domain.BankAccountInactive,
	}

	external, err := s.bank.GetAccount(ctx, req.AccountNumber)
	switch {
	case err == nil:
		if external.Currency != req.Currency {
			return nil, domain.ErrCurrencyMismatch
		}
		account.Status = external.Status
		account.IsVerified = external.Status == banksim.StatusActive
		account.Balance = external.Balance
	case isExternalCode(err, banksim.CodeAccountNotFound):
		log.Printf("level=info component=orchestrator msg=\"bank account unknown to bank; linking unverified\" user_id=%s account=%s", userID, account.MaskedAccountNumber())
	default:
		return nil, err
	}

	err = s.repo.RunInTx(ctx, func(q store.Queries) error {
		// Concurrent first links would otherwise both see no accounts and both claim the default.
		if _, err := q.LockUser(ctx, userID); err != nil {
			return err
		}
		existing, err := q.ListBankAccounts(ctx, userID)
		if err != nil {
			return err
		}
		account.IsDefault = req.IsDefault || len(existing) == 0
		if account.IsDefault {
			if err := q.ClearDefaultBankAccounts(ctx, userID); err != nil {
				return err
			}
		}
		if err := q.CreateBankAccount(ctx, account); err != nil {
			return err
		}
		return notifySecurity(ctx, q, userID, "Bank account linked",
			fmt.Sprintf("%s %s was linked to your wallet.", account.BankName, account.MaskedAccountNumber()))
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=orchestrator msg=\"bank account linked\" user_id=%s bank_account_id=%s verified=%t default=%t", userID, account.ID, account.IsVerified, account.IsDefault)
	return account, nil
}

func (s *Service) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]domain.BankAccount, error) {
	return s.repo.ListBankAccounts(ctx, userID)
}

// SetDefaultBankAccount makes accountID the caller's only default account.
func (s *Service) SetDefaultBankAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error) {
	var account *domain.BankAccount
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		if _, err := q.LockBankAccount(ctx, userID, accountID); err != nil {
			return err
		}
		if err := q.ClearDefaultBankAccounts(ctx, userID); err != nil {
			return err
		}
		if err := q.SetBankAccountDefault(ctx, userID, accountID); err != nil {
			return err
		}
		updated, err := q.FindBankAccountByID(ctx, userID, accountID)
		if err != nil {
			return err
		}
		account = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteBankAccount unlinks an account. Accounts holding money, and the default account
// while other accounts are linked, cannot be removed.
func (s *Service) DeleteBankAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		account, err := q.LockBankAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		if account.Balance > 0 {
			return domain.ErrBankAccountHasBalance
		}
		if account.IsDefault {
			accounts, err := q.ListBankAccounts(ctx, userID)
			if err != nil {
				return err
			}
			if len(accounts) > 1 {
				return domain.ErrDefaultAccountInUse
			}
		}
		return q.DeleteBankAccount(ctx, userID, accountID)
	})
	if err != nil {
		return err
	}
	log.Printf("level=info component=orchestrator msg=\"bank account removed\" user_id=%s bank_account_id=%s", userID, accountID)
	return nil
}

// SyncBankAccount refreshes the mirror's verification, status and balance from the bank.
func (s *Service) SyncBankAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankBalanceResult, error) {
	account, err := s.repo.FindBankAccountByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	external, err := s.bank.GetAccount(ctx, account.AccountNumber)
	if err != nil {
		if isExternalCode(err, banksim.CodeAccountNotFound) {
			if updateErr := s.repo.UpdateBankAccountVerification(ctx, account.ID, false, domain.BankAccountInactive, account.Balance); updateErr != nil {
				return nil, updateErr
			}
		}
		return nil, err
	}

	verified := external.Status == banksim.StatusActive && external.Currency == account.Currency
	if err := s.repo.UpdateBankAccountVerification(ctx, account.ID, verified, external.Status, external.Balance); err != nil {
		return nil, err
	}
	return &domain.BankBalanceResult{AccountID: account.ID, Balance: external.Balance, Currency: account.Currency}, nil
}

// GetBankAccountBalance reads the live balance from the bank without touching the mirror.
func (s *Service) GetBankAccountBalance(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankBalanceResult, error) {
	account, err := s.repo.FindBankAccountByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	balance, err := s.bank.GetBalance(ctx, account.AccountNumber)
	if err != nil {
		return nil, err
	}
	return &domain.BankBalanceResult{AccountID: account.ID, Balance: balance, Currency: account.Currency}, nil
}
