package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
	"github.com/transfa/wallet-service/pkg/kvstore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []domain.TransactionCompletedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	if event, ok := body.(domain.TransactionCompletedEvent); ok {
		p.events = append(p.events, event)
	}
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// hookedBank runs a callback once a bank call has gone through, before the caller sees the
// reply.
type hookedBank struct {
	ExternalBank
	afterDeposit  func()
	afterWithdraw func()
}

func (b *hookedBank) Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	balance, err := b.ExternalBank.Deposit(ctx, accountNumber, amount)
	if hook := b.afterDeposit; hook != nil {
		b.afterDeposit = nil
		hook()
	}
	return balance, err
}

func (b *hookedBank) Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	balance, err := b.ExternalBank.Withdraw(ctx, accountNumber, amount)
	if hook := b.afterWithdraw; hook != nil {
		b.afterWithdraw = nil
		hook()
	}
	return balance, err
}

type testEnv struct {
	svc  *Service
	repo *store.MemoryRepository
	sim  *banksim.Simulator
	pub  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := store.NewMemoryRepository()
	sim := banksim.NewSimulator(banksim.NewMemoryLedger(), 0, "INR")
	pub := &recordingPublisher{}
	svc := NewService(repo, NewEmbeddedBank(sim), kvstore.NewMemoryStore(), pub, Options{
		DefaultCurrency:          "INR",
		PaymentHandleDomain:      "wallet",
		PINMaxAttempts:           3,
		PINLockout:               time.Minute,
		PublishTransactionEvents: true,
	})
	return &testEnv{svc: svc, repo: repo, sim: sim, pub: pub}
}

func (e *testEnv) newUser(t *testing.T, name, phone string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	req := domain.ProvisionWalletRequest{UserID: id, FullName: name}
	if phone != "" {
		req.PhoneNumber = &phone
	}
	_, err := e.svc.ProvisionWallet(context.Background(), req)
	require.NoError(t, err)
	return id
}

func (e *testEnv) fundedUser(t *testing.T, name string, balance int64) uuid.UUID {
	t.Helper()
	id := e.newUser(t, name, "")
	if balance > 0 {
		_, err := e.svc.TopUp(context.Background(), id, domain.TopUpRequest{Amount: balance})
		require.NoError(t, err)
	}
	return id
}

func (e *testEnv) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	wallet, err := e.repo.FindWalletByUserID(context.Background(), userID)
	require.NoError(t, err)
	return wallet.Balance
}

func (e *testEnv) linkAccount(t *testing.T, userID uuid.UUID, number string, externalBalance int64) *domain.BankAccount {
	t.Helper()
	_, err := e.sim.OpenAccount(context.Background(), banksim.Account{AccountNumber: number, HolderName: "Account Holder", Balance: externalBalance})
	require.NoError(t, err)
	account, err := e.svc.LinkBankAccount(context.Background(), userID, domain.LinkBankAccountRequest{
		BankName:          "State Bank",
		AccountHolderName: "Account Holder",
		AccountNumber:     number,
		IFSCCode:          "SBIN0001234",
	})
	require.NoError(t, err)
	return account
}

func (e *testEnv) transactions(t *testing.T, userID uuid.UUID, txType string) []domain.Transaction {
	t.Helper()
	txs, err := e.repo.ListTransactions(context.Background(), userID, domain.TransactionFilter{Type: txType, Limit: 100})
	require.NoError(t, err)
	return txs
}

func (e *testEnv) notifications(t *testing.T, userID uuid.UUID) []domain.Notification {
	t.Helper()
	ns, err := e.repo.ListNotifications(context.Background(), userID, 100, 0)
	require.NoError(t, err)
	return ns
}

func TestGetWallet_BackfillsMissingWallet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, env.repo.UpsertUser(ctx, &domain.User{ID: userID, FullName: "Asha Rao"}))

	first, err := env.svc.GetWallet(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), first.Balance)
	require.Equal(t, "INR", first.Currency)
	require.Contains(t, first.UPIID, "asharao.")
	require.Contains(t, first.UPIID, "@wallet")

	second, err := env.svc.GetWallet(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestGetWallet_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetWallet(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProvisionWallet_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := env.svc.ProvisionWallet(ctx, domain.ProvisionWalletRequest{UserID: userID, FullName: "Ravi"})
	require.NoError(t, err)
	second, err := env.svc.ProvisionWallet(ctx, domain.ProvisionWalletRequest{UserID: userID, FullName: "Ravi Kumar"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	user, err := env.repo.FindUserByID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "Ravi Kumar", user.FullName)
}

func TestProvisionWallet_RequiresUserID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ProvisionWallet(context.Background(), domain.ProvisionWalletRequest{FullName: "No Id"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewService_AppliesDefaults(t *testing.T) {
	svc := NewService(store.NewMemoryRepository(), nil, nil, nil, Options{})

	require.Equal(t, "INR", svc.opts.DefaultCurrency)
	require.Equal(t, 5, svc.opts.PINMaxAttempts)
	require.Equal(t, 24*time.Hour, svc.opts.IdempotencyTTL)
	require.NotNil(t, svc.idempotency)
	require.NotNil(t, svc.eventProducer)
}
