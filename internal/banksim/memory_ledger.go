package banksim

import (
	"context"
	"math"
	"sync"
)

// MemoryLedger keeps simulator accounts in a map guarded by a mutex.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[string]*Account)}
}

func (l *MemoryLedger) Open(_ context.Context, account Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[account.AccountNumber]; exists {
		return ErrAccountExists
	}
	stored := account
	l.accounts[account.AccountNumber] = &stored
	return nil
}

func (l *MemoryLedger) Get(_ context.Context, accountNumber string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[accountNumber]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *account, nil
}

func (l *MemoryLedger) Apply(_ context.Context, accountNumber string, delta int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[accountNumber]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if account.Status != StatusActive {
		return account.Balance, ErrAccountNotActive
	}
	if account.Balance+delta < 0 {
		return account.Balance, ErrInsufficientFunds
	}
	if delta > 0 && account.Balance > math.MaxInt64-delta {
		return account.Balance, ErrInvalidAmount
	}
	account.Balance += delta
	return account.Balance, nil
}

func (l *MemoryLedger) SetStatus(_ context.Context, accountNumber, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[accountNumber]
	if !ok {
		return ErrAccountNotFound
	}
	account.Status = status
	return nil
}
