package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

// failingCommitRepo fails every completed transaction insert so the local side of a bank
// transfer cannot commit.
type failingCommitRepo struct {
	store.Repository
}

func (r *failingCommitRepo) RunInTx(ctx context.Context, fn func(q store.Queries) error) error {
	return r.Repository.RunInTx(ctx, func(q store.Queries) error {
		return fn(&failingCommitQueries{Queries: q})
	})
}

type failingCommitQueries struct {
	store.Queries
}

func (q *failingCommitQueries) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.Status == domain.TransactionStatusCompleted && tx.Metadata.IntentID != nil {
		return errors.New("ledger write failed")
	}
	return q.Queries.CreateTransaction(ctx, tx)
}

func externalBalance(t *testing.T, sim *banksim.Simulator, number string) int64 {
	t.Helper()
	balance, err := sim.GetBalance(context.Background(), number)
	require.NoError(t, err)
	return balance
}

func intentFor(t *testing.T, repo store.Repository, tx *domain.Transaction) *domain.TransferIntent {
	t.Helper()
	require.NotNil(t, tx.Metadata.IntentID)
	intent, err := repo.LockTransferIntent(context.Background(), *tx.Metadata.IntentID)
	require.NoError(t, err)
	return intent
}

func TestTransferToBank_DebitsWalletAndCreditsBank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 1000)
	account := env.linkAccount(t, userID, "5000100200", 2000)

	result, err := env.svc.TransferToBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 300})
	require.NoError(t, err)

	assert.Equal(t, int64(700), result.NewWalletBalance)
	assert.Equal(t, int64(2300), result.NewBankAccountBalance)
	assert.Equal(t, int64(700), env.balance(t, userID))
	assert.Equal(t, int64(2300), externalBalance(t, env.sim, "5000100200"))

	mirror, err := env.repo.FindBankAccountByID(ctx, userID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2300), mirror.Balance)

	withdrawals := env.transactions(t, userID, domain.TransactionTypeWithdrawal)
	require.Len(t, withdrawals, 1)
	assert.Equal(t, int64(-300), withdrawals[0].Amount)
	assert.Equal(t, "****0200", withdrawals[0].Metadata.AccountNumberMasked)
	assert.Equal(t, domain.IntentStatusCompleted, intentFor(t, env.repo, &withdrawals[0]).Status)
}

// Wallet 100, transfer-to-bank 150.
func TestTransferToBank_InsufficientWalletBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 100)
	account := env.linkAccount(t, userID, "5000100201", 0)

	_, err := env.svc.TransferToBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 150})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(100), env.balance(t, userID))
	assert.Equal(t, int64(0), externalBalance(t, env.sim, "5000100201"))
	assert.Empty(t, env.transactions(t, userID, domain.TransactionTypeWithdrawal))

	stale, err := env.repo.ListStaleTransferIntents(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, stale, "no intent is recorded when the precondition fails")
}

// External balance 5000, transfer-from-bank 2000.
func TestTransferFromBank_UsesBankBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 0)
	account := env.linkAccount(t, userID, "5000100202", 5000)

	result, err := env.svc.TransferFromBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 2000})
	require.NoError(t, err)

	assert.Equal(t, int64(2000), result.NewWalletBalance)
	assert.Equal(t, int64(3000), result.NewBankAccountBalance)
	assert.Equal(t, int64(2000), env.balance(t, userID))

	mirror, err := env.repo.FindBankAccountByID(ctx, userID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), mirror.Balance)

	deposits := env.transactions(t, userID, domain.TransactionTypeDeposit)
	require.Len(t, deposits, 1)
	assert.Equal(t, int64(2000), deposits[0].Amount)
	assert.Equal(t, domain.PaymentMethodBankAccount, deposits[0].Metadata.PaymentMethod)
}

func TestTransferFromBank_InsufficientExternalFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 50)
	account := env.linkAccount(t, userID, "5000100203", 100)

	_, err := env.svc.TransferFromBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 500})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(50), env.balance(t, userID))
	assert.Equal(t, int64(100), externalBalance(t, env.sim, "5000100203"))
	assert.Len(t, env.transactions(t, userID, ""), 1)
}

func TestBankTransfer_RequiresVerifiedActiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 1000)

	unverified, err := env.svc.LinkBankAccount(ctx, userID, domain.LinkBankAccountRequest{
		BankName: "Ghost Bank", AccountHolderName: "Asha", AccountNumber: "99990000",
	})
	require.NoError(t, err)
	require.False(t, unverified.IsVerified)

	_, err = env.svc.TransferToBank(ctx, userID, domain.BankTransferRequest{AccountID: unverified.ID, Amount: 100})
	require.ErrorIs(t, err, domain.ErrBankAccountNotReady)

	frozen := env.linkAccount(t, userID, "5000100204", 500)
	require.NoError(t, env.sim.SetStatus(ctx, "5000100204", banksim.StatusFrozen))
	_, err = env.svc.SyncBankAccount(ctx, userID, frozen.ID)
	require.NoError(t, err)

	_, err = env.svc.TransferFromBank(ctx, userID, domain.BankTransferRequest{AccountID: frozen.ID, Amount: 100})
	require.ErrorIs(t, err, domain.ErrBankAccountNotReady)

	_, err = env.svc.TransferToBank(ctx, userID, domain.BankTransferRequest{AccountID: uuid.New(), Amount: 100})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1000), env.balance(t, userID))
}

func TestBankTransfer_OtherUsersAccountIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.fundedUser(t, "Owner", 0)
	intruder := env.fundedUser(t, "Intruder", 500)
	account := env.linkAccount(t, owner, "5000100205", 1000)

	_, err := env.svc.TransferFromBank(ctx, intruder, domain.BankTransferRequest{AccountID: account.ID, Amount: 100})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1000), externalBalance(t, env.sim, "5000100205"))
}

func TestTransferToBank_CompensatesWhenLocalCommitFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 1000)
	account := env.linkAccount(t, userID, "5000100206", 2000)

	env.svc.repo = &failingCommitRepo{Repository: env.repo}
	_, err := env.svc.TransferToBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 400})
	require.Error(t, err)

	assert.Equal(t, int64(1000), env.balance(t, userID))
	assert.Equal(t, int64(2000), externalBalance(t, env.sim, "5000100206"), "bank deposit must be reversed")

	reversals := env.transactions(t, userID, domain.TransactionTypeWithdrawal)
	require.Len(t, reversals, 1)
	assert.Equal(t, domain.TransactionStatusCancelled, reversals[0].Status)
	require.NotNil(t, reversals[0].Metadata.CompensatesIntentID)

	intent, err := env.repo.LockTransferIntent(ctx, *reversals[0].Metadata.CompensatesIntentID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCompensated, intent.Status)
	require.NotNil(t, intent.FailureReason)
	assert.Contains(t, *intent.FailureReason, "ledger write failed")

	summary, err := env.svc.SummarizeTransactions(ctx, userID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Debits, "cancelled rows are not part of the summary")
}

func TestTransferToBank_ReversesWhenSweepFailsIntentMidCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 1000)
	account := env.linkAccount(t, userID, "5000100207", 2000)

	// A sweep runs after the bank accepted the deposit but before the request records it.
	var report ReconcileReport
	env.svc.bank = &hookedBank{ExternalBank: env.svc.bank, afterDeposit: func() {
		env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { env.svc.now = time.Now }()
		var err error
		report, err = env.svc.ReconcileStaleIntents(ctx, 0)
		require.NoError(t, err)
	}}

	_, err := env.svc.TransferToBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 400})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, report.Failed)

	assert.Equal(t, int64(1000), env.balance(t, userID))
	assert.Equal(t, int64(2000), externalBalance(t, env.sim, "5000100207"), "bank deposit must be reversed")

	reversals := env.transactions(t, userID, domain.TransactionTypeWithdrawal)
	require.Len(t, reversals, 1)
	assert.Equal(t, domain.TransactionStatusCancelled, reversals[0].Status)
	require.NotNil(t, reversals[0].Metadata.CompensatesIntentID)

	intent, err := env.repo.LockTransferIntent(ctx, *reversals[0].Metadata.CompensatesIntentID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCompensated, intent.Status)
}

func TestTransferFromBank_RejectsWalletOverflowBeforeBankCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", math.MaxInt64-10)
	account := env.linkAccount(t, userID, "5000100208", 1000)

	_, err := env.svc.TransferFromBank(ctx, userID, domain.BankTransferRequest{AccountID: account.ID, Amount: 100})
	require.ErrorIs(t, err, domain.ErrBalanceLimit)
	assert.Equal(t, int64(1000), externalBalance(t, env.sim, "5000100208"))
	assert.Equal(t, int64(math.MaxInt64-10), env.balance(t, userID))
}

func TestLedgerTransaction_WalletDebitAndCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 1000)

	result, err := env.svc.LedgerTransaction(ctx, domain.LedgerTransactionRequest{
		UserID: userID, Type: "bill", Amount: 300, PaymentMethod: "wallet", Description: "Electricity bill",
	})
	require.NoError(t, err)
	require.NotNil(t, result.NewWalletBalance)
	assert.Equal(t, int64(700), *result.NewWalletBalance)
	assert.Equal(t, int64(-300), result.Transaction.Amount)
	assert.Nil(t, result.NewBankAccountBalance)

	_, err = env.svc.LedgerTransaction(ctx, domain.LedgerTransactionRequest{
		UserID: userID, Type: "payment", Amount: 5000, PaymentMethod: "wallet",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	result, err = env.svc.LedgerTransaction(ctx, domain.LedgerTransactionRequest{
		UserID: userID, Type: "deposit", Amount: 50, PaymentMethod: "wallet",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(750), *result.NewWalletBalance)
	assert.Equal(t, "Deposit", result.Transaction.Description)
}

func TestLedgerTransaction_BankAccountRoutesThroughBank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 0)
	account := env.linkAccount(t, userID, "5000100207", 1000)

	result, err := env.svc.LedgerTransaction(ctx, domain.LedgerTransactionRequest{
		UserID: userID, Type: "withdrawal", Amount: 400, PaymentMethod: "bank_account", BankAccountID: &account.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, result.NewBankAccountBalance)
	assert.Equal(t, int64(600), *result.NewBankAccountBalance)
	assert.Equal(t, int64(600), externalBalance(t, env.sim, "5000100207"))
	assert.Equal(t, int64(0), env.balance(t, userID), "wallet is untouched by bank-routed ledger transactions")

	_, err = env.svc.LedgerTransaction(ctx, domain.LedgerTransactionRequest{
		UserID: userID, Type: "withdrawal", Amount: 4000, PaymentMethod: "bank_account", BankAccountID: &account.ID,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestLedgerTransaction_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 100)

	cases := []domain.LedgerTransactionRequest{
		{Type: "deposit", Amount: 10, PaymentMethod: "wallet"},
		{UserID: userID, Type: "refund", Amount: 10, PaymentMethod: "wallet"},
		{UserID: userID, Type: "deposit", Amount: 0, PaymentMethod: "wallet"},
		{UserID: userID, Type: "deposit", Amount: 10, PaymentMethod: "cash"},
		{UserID: userID, Type: "deposit", Amount: 10, PaymentMethod: "bank_account"},
	}
	for _, req := range cases {
		_, err := env.svc.LedgerTransaction(ctx, req)
		assert.ErrorIs(t, err, domain.ErrValidation, "request %+v", req)
	}
	assert.Equal(t, int64(100), env.balance(t, userID))
}
