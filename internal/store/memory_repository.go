package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
)

// MemoryRepository is an in-process Repository with the same semantics as the
// PostgreSQL one. RunInTx holds a single lock for the whole scope and restores a
// snapshot of the state when fn fails.
type MemoryRepository struct {
	*memoryQueries
	mu sync.Mutex
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{}
	r.memoryQueries = &memoryQueries{state: newMemoryState(), locker: &r.mu, now: time.Now}
	return r
}

// SetClock overrides the time source used for timestamps.
func (r *MemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memoryQueries.now = now
}

func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := r.state.clone()
	scoped := &memoryQueries{state: r.state, locker: noopLocker{}, now: r.memoryQueries.now}
	if err := fn(scoped); err != nil {
		*r.state = *snapshot
		return err
	}
	return nil
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

type memoryState struct {
	users         map[uuid.UUID]domain.User
	wallets       map[uuid.UUID]domain.Wallet
	bankAccounts  map[uuid.UUID]domain.BankAccount
	transactions  []domain.Transaction
	notifications []domain.Notification
	credentials   map[uuid.UUID]domain.UserSecurityCredential
	intents       map[uuid.UUID]domain.TransferIntent
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:        make(map[uuid.UUID]domain.User),
		wallets:      make(map[uuid.UUID]domain.Wallet),
		bankAccounts: make(map[uuid.UUID]domain.BankAccount),
		credentials:  make(map[uuid.UUID]domain.UserSecurityCredential),
		intents:      make(map[uuid.UUID]domain.TransferIntent),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.bankAccounts {
		c.bankAccounts[k] = v
	}
	for k, v := range s.credentials {
		c.credentials[k] = v
	}
	for k, v := range s.intents {
		c.intents[k] = v
	}
	c.transactions = append([]domain.Transaction(nil), s.transactions...)
	c.notifications = append([]domain.Notification(nil), s.notifications...)
	return c
}

type memoryQueries struct {
	state  *memoryState
	locker sync.Locker
	now    func() time.Time
}

func (q *memoryQueries) guard() func() {
	q.locker.Lock()
	return q.locker.Unlock
}

// --- users ---

func (q *memoryQueries) UpsertUser(_ context.Context, user *domain.User) error {
	defer q.guard()()

	for id, existing := range q.state.users {
		if id == user.ID {
			continue
		}
		if user.PhoneNumber != nil && existing.PhoneNumber != nil && *existing.PhoneNumber == *user.PhoneNumber {
			return domain.NewKindError(domain.ErrConflict, "phone number or email is already registered to another user")
		}
		if user.Email != nil && existing.Email != nil && *existing.Email == *user.Email {
			return domain.NewKindError(domain.ErrConflict, "phone number or email is already registered to another user")
		}
	}

	stored, ok := q.state.users[user.ID]
	if !ok {
		stored = domain.User{ID: user.ID, CreatedAt: q.now()}
	}
	if user.FullName != "" {
		stored.FullName = user.FullName
	}
	if user.PhoneNumber != nil {
		stored.PhoneNumber = user.PhoneNumber
	}
	if user.Email != nil {
		stored.Email = user.Email
	}
	q.state.users[user.ID] = stored
	user.CreatedAt = stored.CreatedAt
	return nil
}

func (q *memoryQueries) FindUserByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	defer q.guard()()

	user, ok := q.state.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (q *memoryQueries) LockUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return q.FindUserByID(ctx, userID)
}

func (q *memoryQueries) FindUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	defer q.guard()()

	phone = strings.TrimSpace(phone)
	for _, user := range q.state.users {
		if user.PhoneNumber != nil && *user.PhoneNumber == phone {
			u := user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// --- wallets ---

func (q *memoryQueries) walletByUserID(userID uuid.UUID) (domain.Wallet, bool) {
	for _, w := range q.state.wallets {
		if w.UserID == userID {
			return w, true
		}
	}
	return domain.Wallet{}, false
}

func (q *memoryQueries) CreateWallet(_ context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	defer q.guard()()

	if existing, ok := q.walletByUserID(wallet.UserID); ok {
		return &existing, nil
	}
	if _, ok := q.state.users[wallet.UserID]; !ok {
		return nil, ErrUserNotFound
	}
	for _, w := range q.state.wallets {
		if strings.EqualFold(w.UPIID, wallet.UPIID) {
			return nil, domain.NewKindError(domain.ErrConflict, "payment handle is already taken")
		}
	}
	stored := *wallet
	stored.CreatedAt = q.now()
	stored.UpdatedAt = stored.CreatedAt
	q.state.wallets[stored.ID] = stored
	return &stored, nil
}

func (q *memoryQueries) FindWalletByUserID(_ context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	defer q.guard()()

	w, ok := q.walletByUserID(userID)
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &w, nil
}

func (q *memoryQueries) FindWalletByUPIID(_ context.Context, upiID string) (*domain.Wallet, error) {
	defer q.guard()()

	upiID = strings.TrimSpace(upiID)
	for _, w := range q.state.wallets {
		if strings.EqualFold(w.UPIID, upiID) {
			found := w
			return &found, nil
		}
	}
	return nil, ErrWalletNotFound
}

func (q *memoryQueries) LockWalletsByUserIDs(_ context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	defer q.guard()()

	wallets := make(map[uuid.UUID]*domain.Wallet, len(userIDs))
	for _, id := range sortedUniqueIDs(userIDs) {
		w, ok := q.walletByUserID(id)
		if !ok {
			return nil, ErrWalletNotFound
		}
		wallets[id] = &w
	}
	return wallets, nil
}

func (q *memoryQueries) UpdateWalletBalance(_ context.Context, walletID uuid.UUID, balance int64) error {
	defer q.guard()()

	w, ok := q.state.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	if balance < 0 {
		return domain.NewKindError(domain.ErrInsufficientFunds, "wallet balance cannot be negative")
	}
	w.Balance = balance
	w.UpdatedAt = q.now()
	q.state.wallets[walletID] = w
	return nil
}

// --- bank accounts ---

func (q *memoryQueries) CreateBankAccount(_ context.Context, account *domain.BankAccount) error {
	defer q.guard()()

	for _, existing := range q.state.bankAccounts {
		if existing.AccountNumber == account.AccountNumber {
			return ErrDuplicateBankAccount
		}
		if account.IsDefault && existing.UserID == account.UserID && existing.IsDefault {
			return ErrDefaultBankAccountTaken
		}
	}
	account.CreatedAt = q.now()
	account.UpdatedAt = account.CreatedAt
	q.state.bankAccounts[account.ID] = *account
	return nil
}

func (q *memoryQueries) ownedBankAccount(userID, accountID uuid.UUID) (domain.BankAccount, error) {
	account, ok := q.state.bankAccounts[accountID]
	if !ok || account.UserID != userID {
		return domain.BankAccount{}, ErrBankAccountNotFound
	}
	return account, nil
}

func (q *memoryQueries) FindBankAccountByID(_ context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error) {
	defer q.guard()()

	account, err := q.ownedBankAccount(userID, accountID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (q *memoryQueries) LockBankAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error) {
	return q.FindBankAccountByID(ctx, userID, accountID)
}

func (q *memoryQueries) ListBankAccounts(_ context.Context, userID uuid.UUID) ([]domain.BankAccount, error) {
	defer q.guard()()

	accounts := []domain.BankAccount{}
	for _, account := range q.state.bankAccounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].IsDefault != accounts[j].IsDefault {
			return accounts[i].IsDefault
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (q *memoryQueries) ClearDefaultBankAccounts(_ context.Context, userID uuid.UUID) error {
	defer q.guard()()

	for id, account := range q.state.bankAccounts {
		if account.UserID == userID && account.IsDefault {
			account.IsDefault = false
			account.UpdatedAt = q.now()
			q.state.bankAccounts[id] = account
		}
	}
	return nil
}

func (q *memoryQueries) SetBankAccountDefault(_ context.Context, userID, accountID uuid.UUID) error {
	defer q.guard()()

	account, err := q.ownedBankAccount(userID, accountID)
	if err != nil {
		return err
	}
	for id, other := range q.state.bankAccounts {
		if id != accountID && other.UserID == userID && other.IsDefault {
			return ErrDefaultBankAccountTaken
		}
	}
	account.IsDefault = true
	account.UpdatedAt = q.now()
	q.state.bankAccounts[accountID] = account
	return nil
}

func (q *memoryQueries) UpdateBankAccountBalance(_ context.Context, accountID uuid.UUID, balance int64) error {
	defer q.guard()()

	account, ok := q.state.bankAccounts[accountID]
	if !ok {
		return ErrBankAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = q.now()
	q.state.bankAccounts[accountID] = account
	return nil
}

func (q *memoryQueries) UpdateBankAccountVerification(_ context.Context, accountID uuid.UUID, verified bool, status string, balance int64) error {
	defer q.guard()()

	account, ok := q.state.bankAccounts[accountID]
	if !ok {
		return ErrBankAccountNotFound
	}
	account.IsVerified = verified
	account.Status = status
	account.Balance = balance
	account.UpdatedAt = q.now()
	q.state.bankAccounts[accountID] = account
	return nil
}

func (q *memoryQueries) DeleteBankAccount(_ context.Context, userID, accountID uuid.UUID) error {
	defer q.guard()()

	if _, err := q.ownedBankAccount(userID, accountID); err != nil {
		return err
	}
	delete(q.state.bankAccounts, accountID)
	return nil
}

// --- transactions ---

func (q *memoryQueries) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	defer q.guard()()

	if _, ok := q.state.users[tx.UserID]; !ok {
		return ErrUserNotFound
	}
	tx.CreatedAt = q.now()
	q.state.transactions = append(q.state.transactions, *tx)
	return nil
}

func (q *memoryQueries) FindTransactionByID(_ context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error) {
	defer q.guard()()

	for _, t := range q.state.transactions {
		if t.ID == transactionID && t.UserID == userID {
			found := t
			return &found, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func inWindow(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && !at.Before(*to) {
		return false
	}
	return true
}

func (q *memoryQueries) ListTransactions(_ context.Context, userID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	defer q.guard()()

	matched := []domain.Transaction{}
	// Newest first; insertion order breaks timestamp ties.
	for i := len(q.state.transactions) - 1; i >= 0; i-- {
		t := q.state.transactions[i]
		if t.UserID != userID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if !inWindow(t.CreatedAt, filter.From, filter.To) {
			continue
		}
		matched = append(matched, t)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Limit, filter.Offset), nil
}

func (q *memoryQueries) SummarizeTransactions(_ context.Context, userID uuid.UUID, from, to *time.Time) ([]domain.TransactionSummaryItem, error) {
	defer q.guard()()

	byType := make(map[string]*domain.TransactionSummaryItem)
	for _, t := range q.state.transactions {
		if t.UserID != userID || t.Status != domain.TransactionStatusCompleted || !inWindow(t.CreatedAt, from, to) {
			continue
		}
		item, ok := byType[t.Type]
		if !ok {
			item = &domain.TransactionSummaryItem{Type: t.Type}
			byType[t.Type] = item
		}
		item.Count++
		item.TotalAmount += t.Amount
		if t.Amount > 0 {
			item.CreditAmount += t.Amount
		} else {
			item.DebitAmount -= t.Amount
		}
	}

	items := make([]domain.TransactionSummaryItem, 0, len(byType))
	for _, item := range byType {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Type < items[j].Type })
	return items, nil
}

// --- notifications ---

func (q *memoryQueries) CreateNotification(_ context.Context, n *domain.Notification) error {
	defer q.guard()()

	if _, ok := q.state.users[n.UserID]; !ok {
		return ErrUserNotFound
	}
	n.CreatedAt = q.now()
	q.state.notifications = append(q.state.notifications, *n)
	return nil
}

func (q *memoryQueries) ListNotifications(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	defer q.guard()()

	matched := []domain.Notification{}
	for i := len(q.state.notifications) - 1; i >= 0; i-- {
		if n := q.state.notifications[i]; n.UserID == userID {
			matched = append(matched, n)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- transaction PIN credentials ---

func (q *memoryQueries) GetUserSecurityCredentialByUserID(_ context.Context, userID uuid.UUID) (*domain.UserSecurityCredential, error) {
	defer q.guard()()

	credential, ok := q.state.credentials[userID]
	if !ok || credential.TransactionPINHash == "" {
		return nil, ErrTransactionPINNotSet
	}
	return &credential, nil
}

func (q *memoryQueries) UpsertTransactionPIN(_ context.Context, userID uuid.UUID, pinHash string) error {
	defer q.guard()()

	if _, ok := q.state.users[userID]; !ok {
		return ErrUserNotFound
	}
	q.state.credentials[userID] = domain.UserSecurityCredential{UserID: userID, TransactionPINHash: pinHash}
	return nil
}

func (q *memoryQueries) RecordFailedTransactionPINAttempt(_ context.Context, userID uuid.UUID, maxAttempts int, lockoutDurationSeconds int) (*domain.UserSecurityCredential, error) {
	defer q.guard()()

	credential, ok := q.state.credentials[userID]
	if !ok {
		return nil, ErrTransactionPINNotSet
	}
	now := q.now()
	lockExpired := credential.LockedUntil != nil && !credential.LockedUntil.After(now)
	if lockExpired || (credential.LockedUntil == nil && credential.FailedAttempts >= maxAttempts) {
		credential.FailedAttempts = 1
	} else {
		credential.FailedAttempts++
	}
	credential.LockedUntil = nil
	if credential.FailedAttempts >= maxAttempts {
		until := now.Add(time.Duration(lockoutDurationSeconds) * time.Second)
		credential.LockedUntil = &until
	}
	q.state.credentials[userID] = credential
	return &credential, nil
}

func (q *memoryQueries) ResetTransactionPINFailureState(_ context.Context, userID uuid.UUID) error {
	defer q.guard()()

	credential, ok := q.state.credentials[userID]
	if !ok {
		return ErrTransactionPINNotSet
	}
	credential.FailedAttempts = 0
	credential.LockedUntil = nil
	q.state.credentials[userID] = credential
	return nil
}

// --- transfer intents ---

func (q *memoryQueries) CreateTransferIntent(_ context.Context, intent *domain.TransferIntent) error {
	defer q.guard()()

	intent.CreatedAt = q.now()
	intent.UpdatedAt = intent.CreatedAt
	q.state.intents[intent.ID] = *intent
	return nil
}

func (q *memoryQueries) LockTransferIntent(_ context.Context, intentID uuid.UUID) (*domain.TransferIntent, error) {
	defer q.guard()()

	intent, ok := q.state.intents[intentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return &intent, nil
}

func (q *memoryQueries) TransitionTransferIntent(_ context.Context, intentID uuid.UUID, from []string, status string, failureReason *string) (bool, error) {
	defer q.guard()()

	intent, ok := q.state.intents[intentID]
	if !ok {
		return false, ErrIntentNotFound
	}
	if !containsStatus(from, intent.Status) {
		return false, nil
	}
	intent.Status = status
	if failureReason != nil {
		intent.FailureReason = failureReason
	}
	intent.UpdatedAt = q.now()
	q.state.intents[intentID] = intent
	return true, nil
}

func containsStatus(statuses []string, status string) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func (q *memoryQueries) ListStaleTransferIntents(_ context.Context, cutoff time.Time, limit int) ([]domain.TransferIntent, error) {
	defer q.guard()()

	open := make(map[string]bool, len(OpenIntentStatuses))
	for _, status := range OpenIntentStatuses {
		open[status] = true
	}

	intents := []domain.TransferIntent{}
	for _, intent := range q.state.intents {
		if open[intent.Status] && intent.UpdatedAt.Before(cutoff) {
			intents = append(intents, intent)
		}
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].UpdatedAt.Before(intents[j].UpdatedAt) })
	return paginate(intents, limit, 0), nil
}
