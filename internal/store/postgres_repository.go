/**
 * @description
 * This file provides the PostgreSQL implementation of the Repository interface. Row locks
 * (SELECT ... FOR UPDATE) serialise concurrent transfers touching the same wallet or bank
 * account mirror, and the wallets.balance CHECK constraint backs the non-negative rule.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transfa/wallet-service/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	*pgQueries
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pgQueries: &pgQueries{db: pool}, pool: pool}
}

// RunInTx runs fn inside a database transaction.
func (r *PostgresRepository) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgQueries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgQueries struct {
	db dbtx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// bankAccountInsertError tells the one-default-per-user index apart from a duplicate
// account number.
func bankAccountInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	if pgErr.ConstraintName == "bank_accounts_one_default_per_user" {
		return ErrDefaultBankAccountTaken
	}
	return ErrDuplicateBankAccount
}

// --- users ---

func (q *pgQueries) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, full_name, phone_number, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE users.full_name END,
			phone_number = COALESCE(EXCLUDED.phone_number, users.phone_number),
			email = COALESCE(EXCLUDED.email, users.email)
		RETURNING created_at
	`
	err := q.db.QueryRow(ctx, query, user.ID, user.FullName, user.PhoneNumber, user.Email).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewKindError(domain.ErrConflict, "phone number or email is already registered to another user")
		}
		return err
	}
	return nil
}

func (q *pgQueries) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, full_name, phone_number, email, created_at FROM users WHERE id = $1`
	err := q.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.FullName, &user.PhoneNumber, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (q *pgQueries) LockUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, full_name, phone_number, email, created_at FROM users WHERE id = $1 FOR UPDATE`
	err := q.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.FullName, &user.PhoneNumber, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (q *pgQueries) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, full_name, phone_number, email, created_at FROM users WHERE phone_number = $1`
	err := q.db.QueryRow(ctx, query, strings.TrimSpace(phone)).Scan(&user.ID, &user.FullName, &user.PhoneNumber, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// --- wallets ---

const walletColumns = `id, user_id, balance, currency, upi_id, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.UPIID, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (q *pgQueries) CreateWallet(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	query := `
		INSERT INTO wallets (id, user_id, balance, currency, upi_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := q.db.Exec(ctx, query, wallet.ID, wallet.UserID, wallet.Balance, wallet.Currency, wallet.UPIID); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewKindError(domain.ErrConflict, "payment handle is already taken")
		}
		return nil, err
	}
	return q.FindWalletByUserID(ctx, wallet.UserID)
}

func (q *pgQueries) FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

func (q *pgQueries) FindWalletByUPIID(ctx context.Context, upiID string) (*domain.Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE lower(upi_id) = lower($1)`, strings.TrimSpace(upiID)))
}

func (q *pgQueries) LockWalletsByUserIDs(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	ids := sortedUniqueIDs(userIDs)
	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = ANY($1::uuid[]) ORDER BY user_id FOR UPDATE`
	rows, err := q.db.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets[w.UserID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(wallets) != len(ids) {
		return nil, ErrWalletNotFound
	}
	return wallets, nil
}

func (q *pgQueries) UpdateWalletBalance(ctx context.Context, walletID uuid.UUID, balance int64) error {
	result, err := q.db.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`, balance, walletID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// --- bank accounts ---

const bankAccountColumns = `id, user_id, bank_name, account_holder_name, account_number, ifsc_code, account_type,
	currency, balance, is_verified, is_default, status, created_at, updated_at`

func scanBankAccount(row pgx.Row) (*domain.BankAccount, error) {
	var b domain.BankAccount
	err := row.Scan(&b.ID, &b.UserID, &b.BankName, &b.AccountHolderName, &b.AccountNumber, &b.IFSCCode, &b.AccountType,
		&b.Currency, &b.Balance, &b.IsVerified, &b.IsDefault, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBankAccountNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (q *pgQueries) CreateBankAccount(ctx context.Context, account *domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (id, user_id, bank_name, account_holder_name, account_number, ifsc_code, account_type,
			currency, balance, is_verified, is_default, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err := q.db.QueryRow(ctx, query, account.ID, account.UserID, account.BankName, account.AccountHolderName,
		account.AccountNumber, account.IFSCCode, account.AccountType, account.Currency, account.Balance,
		account.IsVerified, account.IsDefault, account.Status).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return bankAccountInsertError(err)
	}
	return nil
}

func (q *pgQueries) FindBankAccountByID(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE id = $1 AND user_id = $2`
	return scanBankAccount(q.db.QueryRow(ctx, query, accountID, userID))
}

func (q *pgQueries) LockBankAccount(ctx context.Context, userID, accountID uuid.UUID) (*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanBankAccount(q.db.QueryRow(ctx, query, accountID, userID))
}

func (q *pgQueries) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE user_id = $1 ORDER BY is_default DESC, created_at ASC`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.BankAccount{}
	for rows.Next() {
		account, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (q *pgQueries) ClearDefaultBankAccounts(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE bank_accounts SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default`, userID)
	return err
}

func (q *pgQueries) SetBankAccountDefault(ctx context.Context, userID, accountID uuid.UUID) error {
	result, err := q.db.Exec(ctx, `UPDATE bank_accounts SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}

func (q *pgQueries) UpdateBankAccountBalance(ctx context.Context, accountID uuid.UUID, balance int64) error {
	result, err := q.db.Exec(ctx, `UPDATE bank_accounts SET balance = $1, updated_at = NOW() WHERE id = $2`, balance, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}

func (q *pgQueries) UpdateBankAccountVerification(ctx context.Context, accountID uuid.UUID, verified bool, status string, balance int64) error {
	query := `UPDATE bank_accounts SET is_verified = $1, status = $2, balance = $3, updated_at = NOW() WHERE id = $4`
	result, err := q.db.Exec(ctx, query, verified, status, balance, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}

func (q *pgQueries) DeleteBankAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	result, err := q.db.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}

// --- transactions ---

const transactionColumns = `id, user_id, type, amount, currency, description, status, metadata, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var metadata []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Description, &t.Status, &metadata, &t.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return &t, nil
}

func (q *pgQueries) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("encode transaction metadata: %w", err)
	}
	query := `
		INSERT INTO transactions (id, user_id, type, amount, currency, description, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	return q.db.QueryRow(ctx, query, tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Currency, tx.Description, tx.Status, metadata).
		Scan(&tx.CreatedAt)
}

func (q *pgQueries) FindTransactionByID(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`
	return scanTransaction(q.db.QueryRow(ctx, query, transactionID, userID))
}

func (q *pgQueries) ListTransactions(ctx context.Context, userID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (q *pgQueries) SummarizeTransactions(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]domain.TransactionSummaryItem, error) {
	query := `
		SELECT type,
			COUNT(*),
			COALESCE(SUM(amount), 0)::bigint,
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0)::bigint,
			COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)::bigint
		FROM transactions
		WHERE user_id = $1
			AND status = 'completed'
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at < $3)
		GROUP BY type
		ORDER BY type
	`
	rows, err := q.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.TransactionSummaryItem{}
	for rows.Next() {
		var item domain.TransactionSummaryItem
		if err := rows.Scan(&item.Type, &item.Count, &item.TotalAmount, &item.CreditAmount, &item.DebitAmount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- notifications ---

func (q *pgQueries) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, transaction_id, title, message, type, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return q.db.QueryRow(ctx, query, n.ID, n.UserID, n.TransactionID, n.Title, n.Message, n.Type, n.IsRead).Scan(&n.CreatedAt)
}

func (q *pgQueries) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, transaction_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TransactionID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// --- transaction PIN credentials ---

// GetUserSecurityCredentialByUserID returns transaction PIN security metadata for a user.
func (q *pgQueries) GetUserSecurityCredentialByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSecurityCredential, error) {
	var credential domain.UserSecurityCredential
	query := `
		SELECT user_id, transaction_pin_hash, failed_attempts, locked_until
		FROM user_security_credentials
		WHERE user_id = $1
	`
	err := q.db.QueryRow(ctx, query, userID).Scan(
		&credential.UserID,
		&credential.TransactionPINHash,
		&credential.FailedAttempts,
		&credential.LockedUntil,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionPINNotSet
		}
		return nil, err
	}
	if credential.TransactionPINHash == "" {
		return nil, ErrTransactionPINNotSet
	}
	return &credential, nil
}

func (q *pgQueries) UpsertTransactionPIN(ctx context.Context, userID uuid.UUID, pinHash string) error {
	query := `
		INSERT INTO user_security_credentials (user_id, transaction_pin_hash)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			transaction_pin_hash = EXCLUDED.transaction_pin_hash,
			failed_attempts = 0,
			last_failed_at = NULL,
			locked_until = NULL,
			updated_at = NOW()
	`
	_, err := q.db.Exec(ctx, query, userID, pinHash)
	return err
}

// RecordFailedTransactionPINAttempt atomically increments failed attempts and applies lockout.
// An expired lock starts a fresh count.
func (q *pgQueries) RecordFailedTransactionPINAttempt(ctx context.Context, userID uuid.UUID, maxAttempts int, lockoutDurationSeconds int) (*domain.UserSecurityCredential, error) {
	var credential domain.UserSecurityCredential
	query := `
		WITH next AS (
			SELECT user_id,
				CASE
					WHEN (locked_until IS NOT NULL AND locked_until <= NOW())
						OR (locked_until IS NULL AND failed_attempts >= $2) THEN 1
					ELSE failed_attempts + 1
				END AS attempts
			FROM user_security_credentials
			WHERE user_id = $1
			FOR UPDATE
		)
		UPDATE user_security_credentials c
		SET
			failed_attempts = next.attempts,
			last_failed_at = NOW(),
			locked_until = CASE WHEN next.attempts >= $2 THEN NOW() + ($3 * INTERVAL '1 second') ELSE NULL END,
			updated_at = NOW()
		FROM next
		WHERE c.user_id = next.user_id
		RETURNING c.user_id, c.transaction_pin_hash, c.failed_attempts, c.locked_until
	`
	err := q.db.QueryRow(ctx, query, userID, maxAttempts, lockoutDurationSeconds).Scan(
		&credential.UserID,
		&credential.TransactionPINHash,
		&credential.FailedAttempts,
		&credential.LockedUntil,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionPINNotSet
		}
		return nil, err
	}
	return &credential, nil
}

// ResetTransactionPINFailureState clears failed-attempt counters after a successful PIN verification.
func (q *pgQueries) ResetTransactionPINFailureState(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE user_security_credentials
		SET failed_attempts = 0, last_failed_at = NULL, locked_until = NULL
		WHERE user_id = $1
	`
	result, err := q.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionPINNotSet
	}
	return nil
}

// --- transfer intents ---

const intentColumns = `id, user_id, kind, bank_account_id, account_number, amount, direction, status, failure_reason, created_at, updated_at`

func scanIntent(row pgx.Row) (*domain.TransferIntent, error) {
	var i domain.TransferIntent
	err := row.Scan(&i.ID, &i.UserID, &i.Kind, &i.BankAccountID, &i.AccountNumber, &i.Amount, &i.Direction,
		&i.Status, &i.FailureReason, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &i, nil
}

func (q *pgQueries) CreateTransferIntent(ctx context.Context, intent *domain.TransferIntent) error {
	query := `
		INSERT INTO transfer_intents (id, user_id, kind, bank_account_id, account_number, amount, direction, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	return q.db.QueryRow(ctx, query, intent.ID, intent.UserID, intent.Kind, intent.BankAccountID, intent.AccountNumber,
		intent.Amount, intent.Direction, intent.Status, intent.FailureReason).Scan(&intent.CreatedAt, &intent.UpdatedAt)
}

func (q *pgQueries) LockTransferIntent(ctx context.Context, intentID uuid.UUID) (*domain.TransferIntent, error) {
	return scanIntent(q.db.QueryRow(ctx, `SELECT `+intentColumns+` FROM transfer_intents WHERE id = $1 FOR UPDATE`, intentID))
}

func (q *pgQueries) TransitionTransferIntent(ctx context.Context, intentID uuid.UUID, from []string, status string, failureReason *string) (bool, error) {
	query := `
		UPDATE transfer_intents
		SET status = $1, failure_reason = COALESCE($2, failure_reason), updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)
	`
	result, err := q.db.Exec(ctx, query, status, failureReason, intentID, from)
	if err != nil {
		return false, err
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transfer_intents WHERE id = $1)`, intentID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrIntentNotFound
	}
	return false, nil
}

func (q *pgQueries) ListStaleTransferIntents(ctx context.Context, cutoff time.Time, limit int) ([]domain.TransferIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM transfer_intents
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`
	rows, err := q.db.Query(ctx, query, OpenIntentStatuses, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := []domain.TransferIntent{}
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	return intents, rows.Err()
}

func sortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool {
		return strings.Compare(unique[i].String(), unique[j].String()) < 0
	})
	return unique
}
