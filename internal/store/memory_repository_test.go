package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/domain"
)

func seedUserWithWallet(t *testing.T, repo *MemoryRepository, balance int64) (*domain.User, *domain.Wallet) {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), FullName: "Test User"}
	require.NoError(t, repo.UpsertUser(ctx, user))
	wallet, err := repo.CreateWallet(ctx, &domain.Wallet{
		ID:       uuid.New(),
		UserID:   user.ID,
		Balance:  balance,
		Currency: "INR",
		UPIID:    user.ID.String()[:8] + "@wallet",
	})
	require.NoError(t, err)
	return user, wallet
}

func TestMemoryRepository_RunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, wallet := seedUserWithWallet(t, repo, 1000)

	boom := errors.New("boom")
	err := repo.RunInTx(ctx, func(q Queries) error {
		if err := q.UpdateWalletBalance(ctx, wallet.ID, 400); err != nil {
			return err
		}
		if err := q.CreateTransaction(ctx, &domain.Transaction{ID: uuid.New(), UserID: user.ID, Type: domain.TransactionTypeWithdrawal, Amount: -600}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := repo.FindWalletByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stored.Balance)

	txs, err := repo.ListTransactions(ctx, user.ID, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMemoryRepository_RunInTxCommits(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, wallet := seedUserWithWallet(t, repo, 1000)

	err := repo.RunInTx(ctx, func(q Queries) error {
		locked, err := q.LockWalletsByUserIDs(ctx, user.ID)
		if err != nil {
			return err
		}
		return q.UpdateWalletBalance(ctx, locked[user.ID].ID, 1500)
	})
	require.NoError(t, err)

	stored, err := repo.FindWalletByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, stored.ID)
	assert.Equal(t, int64(1500), stored.Balance)
}

func TestMemoryRepository_CreateWalletIsIdempotentPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, wallet := seedUserWithWallet(t, repo, 50)

	again, err := repo.CreateWallet(ctx, &domain.Wallet{ID: uuid.New(), UserID: user.ID, Currency: "INR", UPIID: "other@wallet"})
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, again.ID)
	assert.Equal(t, int64(50), again.Balance)
}

func TestMemoryRepository_LockWalletsReportsMissingWallet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, _ := seedUserWithWallet(t, repo, 0)

	_, err := repo.LockWalletsByUserIDs(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrWalletNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepository_OneDefaultBankAccountPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, _ := seedUserWithWallet(t, repo, 0)

	first := &domain.BankAccount{ID: uuid.New(), UserID: user.ID, AccountNumber: "1001", IsDefault: true, Status: domain.BankAccountActive}
	second := &domain.BankAccount{ID: uuid.New(), UserID: user.ID, AccountNumber: "1002", Status: domain.BankAccountActive}
	require.NoError(t, repo.CreateBankAccount(ctx, first))
	require.NoError(t, repo.CreateBankAccount(ctx, second))

	err := repo.SetBankAccountDefault(ctx, user.ID, second.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, repo.RunInTx(ctx, func(q Queries) error {
		if err := q.ClearDefaultBankAccounts(ctx, user.ID); err != nil {
			return err
		}
		return q.SetBankAccountDefault(ctx, user.ID, second.ID)
	}))

	accounts, err := repo.ListBankAccounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, second.ID, accounts[0].ID)
	assert.True(t, accounts[0].IsDefault)
	assert.False(t, accounts[1].IsDefault)

	dup := &domain.BankAccount{ID: uuid.New(), UserID: user.ID, AccountNumber: "1001"}
	assert.ErrorIs(t, repo.CreateBankAccount(ctx, dup), ErrDuplicateBankAccount)

	extraDefault := &domain.BankAccount{ID: uuid.New(), UserID: user.ID, AccountNumber: "1003", IsDefault: true}
	err = repo.CreateBankAccount(ctx, extraDefault)
	assert.ErrorIs(t, err, ErrDefaultBankAccountTaken)
	assert.NotErrorIs(t, err, ErrDuplicateBankAccount)
}

func TestMemoryRepository_BankAccountsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	owner, _ := seedUserWithWallet(t, repo, 0)
	other, _ := seedUserWithWallet(t, repo, 0)

	account := &domain.BankAccount{ID: uuid.New(), UserID: owner.ID, AccountNumber: "1001"}
	require.NoError(t, repo.CreateBankAccount(ctx, account))

	_, err := repo.FindBankAccountByID(ctx, other.ID, account.ID)
	assert.ErrorIs(t, err, ErrBankAccountNotFound)
	assert.ErrorIs(t, repo.DeleteBankAccount(ctx, other.ID, account.ID), ErrBankAccountNotFound)
}

func TestMemoryRepository_PINLockout(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })
	user, _ := seedUserWithWallet(t, repo, 0)

	_, err := repo.GetUserSecurityCredentialByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrTransactionPINNotSet)

	require.NoError(t, repo.UpsertTransactionPIN(ctx, user.ID, "hash"))

	var credential *domain.UserSecurityCredential
	for i := 0; i < 3; i++ {
		credential, err = repo.RecordFailedTransactionPINAttempt(ctx, user.ID, 3, 60)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, credential.FailedAttempts)
	require.NotNil(t, credential.LockedUntil)
	assert.Equal(t, now.Add(time.Minute), *credential.LockedUntil)

	now = now.Add(2 * time.Minute)
	credential, err = repo.RecordFailedTransactionPINAttempt(ctx, user.ID, 3, 60)
	require.NoError(t, err)
	assert.Equal(t, 1, credential.FailedAttempts, "expired lock starts a fresh count")
	assert.Nil(t, credential.LockedUntil)

	require.NoError(t, repo.ResetTransactionPINFailureState(ctx, user.ID))
	credential, err = repo.GetUserSecurityCredentialByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, credential.FailedAttempts)
}

func TestMemoryRepository_ListTransactionsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })
	user, _ := seedUserWithWallet(t, repo, 0)

	types := []string{domain.TransactionTypeDeposit, domain.TransactionTypeTransfer, domain.TransactionTypeDeposit, domain.TransactionTypePayment}
	for i, txType := range types {
		now = now.Add(time.Minute)
		amount := int64(100 * (i + 1))
		if txType != domain.TransactionTypeDeposit {
			amount = -amount
		}
		require.NoError(t, repo.CreateTransaction(ctx, &domain.Transaction{
			ID: uuid.New(), UserID: user.ID, Type: txType, Amount: amount, Status: domain.TransactionStatusCompleted,
		}))
	}

	all, err := repo.ListTransactions(ctx, user.ID, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, domain.TransactionTypePayment, all[0].Type, "newest first")

	deposits, err := repo.ListTransactions(ctx, user.ID, domain.TransactionFilter{Type: domain.TransactionTypeDeposit})
	require.NoError(t, err)
	assert.Len(t, deposits, 2)

	page, err := repo.ListTransactions(ctx, user.ID, domain.TransactionFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(300), page[0].Amount)

	summary, err := repo.SummarizeTransactions(ctx, user.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, domain.TransactionSummaryItem{Type: domain.TransactionTypeDeposit, Count: 2, TotalAmount: 400, CreditAmount: 400}, summary[0])
	assert.Equal(t, domain.TransactionSummaryItem{Type: domain.TransactionTypePayment, Count: 1, TotalAmount: -400, DebitAmount: 400}, summary[1])
}

func TestMemoryRepository_ListStaleTransferIntents(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })
	user, _ := seedUserWithWallet(t, repo, 0)

	stale := &domain.TransferIntent{ID: uuid.New(), UserID: user.ID, Status: domain.IntentStatusExternalSucceeded}
	done := &domain.TransferIntent{ID: uuid.New(), UserID: user.ID, Status: domain.IntentStatusCompleted}
	require.NoError(t, repo.CreateTransferIntent(ctx, stale))
	require.NoError(t, repo.CreateTransferIntent(ctx, done))

	now = now.Add(10 * time.Minute)
	fresh := &domain.TransferIntent{ID: uuid.New(), UserID: user.ID, Status: domain.IntentStatusPending}
	require.NoError(t, repo.CreateTransferIntent(ctx, fresh))

	intents, err := repo.ListStaleTransferIntents(ctx, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, stale.ID, intents[0].ID)
}

func TestMemoryRepository_TransitionTransferIntentIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, _ := seedUserWithWallet(t, repo, 0)

	intent := &domain.TransferIntent{ID: uuid.New(), UserID: user.ID, Status: domain.IntentStatusPending}
	require.NoError(t, repo.CreateTransferIntent(ctx, intent))

	reason := "abandoned"
	changed, err := repo.TransitionTransferIntent(ctx, intent.ID, []string{domain.IntentStatusPending}, domain.IntentStatusFailed, &reason)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.TransitionTransferIntent(ctx, intent.ID, []string{domain.IntentStatusPending}, domain.IntentStatusExternalSucceeded, nil)
	require.NoError(t, err)
	assert.False(t, changed, "a resolved intent is not overwritten")

	current, err := repo.LockTransferIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusFailed, current.Status)
	require.NotNil(t, current.FailureReason)
	assert.Equal(t, "abandoned", *current.FailureReason)

	_, err = repo.TransitionTransferIntent(ctx, uuid.New(), []string{domain.IntentStatusPending}, domain.IntentStatusFailed, nil)
	require.ErrorIs(t, err, ErrIntentNotFound)
}

func TestSortedUniqueIDs(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	got := sortedUniqueIDs([]uuid.UUID{a, b, a})
	assert.Equal(t, []uuid.UUID{b, a}, got)
}
