/**
 * @description
 * The ExternalBank port and its two adapters. The embedded adapter calls the in-process
 * simulator directly; the remote adapter goes through the simulator's HTTP API. Both
 * translate simulator failures into the domain error kinds the orchestrator understands.
 */

package app

import (
	"context"
	"errors"
	"log"

	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/pkg/bankclient"
)

// ExternalAccount is the bank's authoritative view of a linked account.
type ExternalAccount struct {
	AccountNumber string
	Balance       int64
	Currency      string
	Status        string
}

// ExternalBank is the partner bank contract. Every call is fallible and must not be
// retried by the caller within the same request.
//
//go:generate mockgen -destination=mocks/mock_bank.go -package=mocks -source=bank.go ExternalBank
type ExternalBank interface {
	Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error)
	Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error)
	GetBalance(ctx context.Context, accountNumber string) (int64, error)
	GetAccount(ctx context.Context, accountNumber string) (*ExternalAccount, error)
}

// EmbeddedBank adapts an in-process simulator to ExternalBank.
type EmbeddedBank struct {
	sim *banksim.Simulator
}

func NewEmbeddedBank(sim *banksim.Simulator) *EmbeddedBank {
	return &EmbeddedBank{sim: sim}
}

func (b *EmbeddedBank) Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	balance, err := b.sim.Deposit(ctx, accountNumber, amount)
	return balance, mapBankError(err, banksim.Code(err))
}

func (b *EmbeddedBank) Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	balance, err := b.sim.Withdraw(ctx, accountNumber, amount)
	return balance, mapBankError(err, banksim.Code(err))
}

func (b *EmbeddedBank) GetBalance(ctx context.Context, accountNumber string) (int64, error) {
	balance, err := b.sim.GetBalance(ctx, accountNumber)
	return balance, mapBankError(err, banksim.Code(err))
}

func (b *EmbeddedBank) GetAccount(ctx context.Context, accountNumber string) (*ExternalAccount, error) {
	account, err := b.sim.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, mapBankError(err, banksim.Code(err))
	}
	return toExternalAccount(&account), nil
}

// RemoteBank adapts the simulator HTTP client to ExternalBank.
type RemoteBank struct {
	client *bankclient.Client
}

func NewRemoteBank(client *bankclient.Client) *RemoteBank {
	return &RemoteBank{client: client}
}

func (b *RemoteBank) Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	balance, err := b.client.Deposit(ctx, accountNumber, amount)
	return balance, mapBankError(err, remoteCode(err))
}

func (b *RemoteBank) Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	balance, err := b.client.Withdraw(ctx, accountNumber, amount)
	return balance, mapBankError(err, remoteCode(err))
}

func (b *RemoteBank) GetBalance(ctx context.Context, accountNumber string) (int64, error) {
	balance, err := b.client.GetBalance(ctx, accountNumber)
	return balance, mapBankError(err, remoteCode(err))
}

func (b *RemoteBank) GetAccount(ctx context.Context, accountNumber string) (*ExternalAccount, error) {
	account, err := b.client.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, mapBankError(err, remoteCode(err))
	}
	return toExternalAccount(account), nil
}

func toExternalAccount(account *banksim.Account) *ExternalAccount {
	return &ExternalAccount{
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Currency:      account.Currency,
		Status:        account.Status,
	}
}

func remoteCode(err error) string {
	var apiErr *bankclient.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}
	return banksim.CodeUnavailable
}

// mapBankError converts a simulator failure into a domain error. Insufficient external
// funds keep their own kind; every other failure is an external system error carrying
// the simulator's message.
func mapBankError(err error, code string) error {
	if err == nil {
		return nil
	}
	switch {
	case code == banksim.CodeInsufficientFunds:
		return domain.NewKindError(domain.ErrInsufficientFunds, "insufficient funds in bank account")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &domain.ExternalError{Code: banksim.CodeUnavailable, Message: "bank request timed out"}
	case code == banksim.CodeUnavailable:
		log.Printf("level=error component=bank msg=\"bank call failed\" err=%v", err)
		return &domain.ExternalError{Code: code, Message: "bank is temporarily unavailable"}
	default:
		return &domain.ExternalError{Code: code, Message: err.Error()}
	}
}

// isExternalCode reports whether err is an external failure with the given code.
func isExternalCode(err error, code string) bool {
	var extErr *domain.ExternalError
	return errors.As(err, &extErr) && extErr.Code == code
}
