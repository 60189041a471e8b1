package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/domain"
)

func (e *testEnv) seedIntent(t *testing.T, account *domain.BankAccount, status string, amount int64) *domain.TransferIntent {
	t.Helper()
	intent := &domain.TransferIntent{
		ID:            uuid.New(),
		UserID:        account.UserID,
		Kind:          domain.IntentKindWalletToBank,
		BankAccountID: account.ID,
		AccountNumber: account.AccountNumber,
		Amount:        amount,
		Direction:     domain.IntentDirectionDeposit,
		Status:        status,
	}
	require.NoError(t, e.repo.CreateTransferIntent(context.Background(), intent))
	return intent
}

func (e *testEnv) intentStatus(t *testing.T, id uuid.UUID) string {
	t.Helper()
	intent, err := e.repo.LockTransferIntent(context.Background(), id)
	require.NoError(t, err)
	return intent.Status
}

func TestReconcileStaleIntents_ResolvesOpenIntents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.fundedUser(t, "Asha", 1000)
	account := env.linkAccount(t, userID, "80000001", 1000)

	// The bank already credited the account but the wallet debit never committed.
	_, err := env.sim.Deposit(ctx, account.AccountNumber, 300)
	require.NoError(t, err)
	orphan := env.seedIntent(t, account, domain.IntentStatusExternalSucceeded, 300)
	abandoned := env.seedIntent(t, account, domain.IntentStatusPending, 200)
	done := env.seedIntent(t, account, domain.IntentStatusCompleted, 100)

	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	report, err := env.svc.ReconcileStaleIntents(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, ReconcileReport{Scanned: 2, Failed: 1, Compensated: 1}, report)
	assert.Equal(t, domain.IntentStatusCompensated, env.intentStatus(t, orphan.ID))
	assert.Equal(t, domain.IntentStatusFailed, env.intentStatus(t, abandoned.ID))
	assert.Equal(t, domain.IntentStatusCompleted, env.intentStatus(t, done.ID))

	external, err := env.sim.GetBalance(ctx, account.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), external)
	assert.Equal(t, int64(1000), env.balance(t, userID), "compensation never touches the wallet")

	mirror, err := env.repo.FindBankAccountByID(ctx, userID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), mirror.Balance)

	var reversal *domain.Transaction
	for _, tx := range env.transactions(t, userID, domain.TransactionTypeWithdrawal) {
		tx := tx
		if tx.Metadata.CompensatesIntentID != nil && *tx.Metadata.CompensatesIntentID == orphan.ID {
			reversal = &tx
		}
	}
	require.NotNil(t, reversal)
	assert.Equal(t, domain.TransactionStatusCancelled, reversal.Status)

	// A second pass has nothing left to do.
	report, err = env.svc.ReconcileStaleIntents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, report)
}

func TestReconcileStaleIntents_IgnoresFreshIntents(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "Asha", "")
	account := env.linkAccount(t, userID, "80000002", 1000)
	fresh := env.seedIntent(t, account, domain.IntentStatusExternalSucceeded, 100)

	report, err := env.svc.ReconcileStaleIntents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, domain.IntentStatusExternalSucceeded, env.intentStatus(t, fresh.ID))
}

func TestReconcileStaleIntents_CompensationFailureIsRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")
	account := env.linkAccount(t, userID, "80000003", 50)

	// The account cannot cover the reversal yet.
	intent := env.seedIntent(t, account, domain.IntentStatusExternalSucceeded, 300)
	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	report, err := env.svc.ReconcileStaleIntents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CompensationFailed)
	assert.Equal(t, domain.IntentStatusCompensationFailed, env.intentStatus(t, intent.ID))

	_, err = env.sim.Deposit(ctx, account.AccountNumber, 300)
	require.NoError(t, err)

	report, err = env.svc.ReconcileStaleIntents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Compensated)
	assert.Equal(t, domain.IntentStatusCompensated, env.intentStatus(t, intent.ID))
}

func TestReconcileStaleIntents_SkipsWhenLockHeld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")
	account := env.linkAccount(t, userID, "80000004", 1000)
	intent := env.seedIntent(t, account, domain.IntentStatusPending, 100)

	claimed, err := env.svc.idempotency.SetNX(ctx, reconcileLockKey, "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	report, err := env.svc.ReconcileStaleIntents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{}, report)
	assert.Equal(t, domain.IntentStatusPending, env.intentStatus(t, intent.ID))

	_, found, err := env.svc.idempotency.Get(ctx, reconcileLockKey)
	require.NoError(t, err)
	assert.True(t, found, "another instance's lock is left in place")
}

func TestReconcileStaleIntents_LeavesLockTakenOverMidPass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")
	account := env.linkAccount(t, userID, "80000005", 1000)
	_, err := env.sim.Deposit(ctx, account.AccountNumber, 300)
	require.NoError(t, err)
	env.seedIntent(t, account, domain.IntentStatusExternalSucceeded, 300)

	// The pass outlives its lock and another instance claims it during the reversal.
	env.svc.bank = &hookedBank{ExternalBank: env.svc.bank, afterWithdraw: func() {
		require.NoError(t, env.svc.idempotency.Set(ctx, reconcileLockKey, "other-instance", time.Minute))
	}}

	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	report, err := env.svc.ReconcileStaleIntents(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Compensated)

	value, found, err := env.svc.idempotency.Get(ctx, reconcileLockKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "other-instance", value)
}

func TestReconcileStaleIntents_ReleasesOwnLock(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ReconcileStaleIntents(context.Background(), 0)
	require.NoError(t, err)

	_, found, err := env.svc.idempotency.Get(context.Background(), reconcileLockKey)
	require.NoError(t, err)
	assert.False(t, found)
}
