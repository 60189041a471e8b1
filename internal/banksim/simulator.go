package banksim

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// DefaultLatency models the round trip to a partner bank.
const DefaultLatency = 300 * time.Millisecond

// Simulator is the external bank. Every call waits for the configured latency before
// touching the ledger and fails explicitly instead of retrying.
type Simulator struct {
	ledger          Ledger
	latency         time.Duration
	defaultCurrency string
}

func NewSimulator(ledger Ledger, latency time.Duration, defaultCurrency string) *Simulator {
	if latency < 0 {
		latency = 0
	}
	currency := strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	return &Simulator{ledger: ledger, latency: latency, defaultCurrency: currency}
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OpenAccount creates an external account. Empty currency and status fall back to the
// simulator defaults.
func (s *Simulator) OpenAccount(ctx context.Context, account Account) (Account, error) {
	if err := s.wait(ctx); err != nil {
		return Account{}, err
	}
	account.AccountNumber = strings.TrimSpace(account.AccountNumber)
	if account.AccountNumber == "" {
		return Account{}, ErrInvalidAccount
	}
	if account.Balance < 0 {
		return Account{}, ErrInvalidAmount
	}
	account.Currency = strings.ToUpper(strings.TrimSpace(account.Currency))
	if account.Currency == "" {
		account.Currency = s.defaultCurrency
	}
	if account.Status == "" {
		account.Status = StatusActive
	}
	if err := s.ledger.Open(ctx, account); err != nil {
		return Account{}, err
	}
	log.Printf("level=info component=banksim msg=\"account opened\" account=%s balance=%d currency=%s", account.AccountNumber, account.Balance, account.Currency)
	return account, nil
}

// Deposit credits the account and returns the authoritative balance after the credit.
func (s *Simulator) Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	return s.apply(ctx, "deposit", accountNumber, amount)
}

// Withdraw debits the account and returns the authoritative balance after the debit.
func (s *Simulator) Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	return s.apply(ctx, "withdraw", accountNumber, -amount)
}

func (s *Simulator) apply(ctx context.Context, op, accountNumber string, delta int64) (int64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	if delta == 0 || (op == "deposit" && delta < 0) || (op == "withdraw" && delta > 0) {
		return 0, ErrInvalidAmount
	}
	balance, err := s.ledger.Apply(ctx, strings.TrimSpace(accountNumber), delta)
	if err != nil {
		if !isSimulatorFailure(err) {
			log.Printf("level=error component=banksim msg=\"ledger apply failed\" op=%s account=%s err=%v", op, accountNumber, err)
		}
		return 0, err
	}
	log.Printf("level=info component=banksim msg=\"balance updated\" op=%s account=%s delta=%d balance=%d", op, accountNumber, delta, balance)
	return balance, nil
}

// GetBalance returns the authoritative balance of the account.
func (s *Simulator) GetBalance(ctx context.Context, accountNumber string) (int64, error) {
	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// GetAccount returns the full account record.
func (s *Simulator) GetAccount(ctx context.Context, accountNumber string) (Account, error) {
	if err := s.wait(ctx); err != nil {
		return Account{}, err
	}
	return s.ledger.Get(ctx, strings.TrimSpace(accountNumber))
}

// SetStatus changes the account status, for example to freeze it.
func (s *Simulator) SetStatus(ctx context.Context, accountNumber, status string) error {
	switch status {
	case StatusActive, StatusInactive, StatusFrozen, StatusClosed:
	default:
		return ErrInvalidStatus
	}
	return s.ledger.SetStatus(ctx, strings.TrimSpace(accountNumber), status)
}

// Seed opens the given accounts without latency, skipping ones that already exist.
func (s *Simulator) Seed(ctx context.Context, balances map[string]int64) error {
	for number, balance := range balances {
		err := s.ledger.Open(ctx, Account{
			AccountNumber: number,
			Balance:       balance,
			Currency:      s.defaultCurrency,
			Status:        StatusActive,
		})
		if err != nil && !errors.Is(err, ErrAccountExists) {
			return err
		}
	}
	return nil
}

func isSimulatorFailure(err error) bool {
	return Code(err) != CodeUnavailable
}
