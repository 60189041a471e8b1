package banksim

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

var openAccountScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "balance", ARGV[1], "currency", ARGV[2], "status", ARGV[3], "holder", ARGV[4])
return 1
`)

// Returns {code, balance}: 1 ok, -1 missing, -2 not active, -3 insufficient funds.
var applyDeltaScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {-1, 0}
end
local balance = tonumber(redis.call("HGET", KEYS[1], "balance"))
if redis.call("HGET", KEYS[1], "status") ~= "active" then
  return {-2, balance}
end
local delta = tonumber(ARGV[1])
if balance + delta < 0 then
  return {-3, balance}
end
return {1, redis.call("HINCRBY", KEYS[1], "balance", delta)}
`)

var setStatusScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[1])
return 1
`)

// RedisLedger stores each simulator account as a Redis hash so several simulator
// replicas share one authoritative table.
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "wallet"
	}
	return &RedisLedger{client: client, prefix: trimmedPrefix}
}

func (l *RedisLedger) key(accountNumber string) string {
	return fmt.Sprintf("%s:banksim:account:%s", l.prefix, accountNumber)
}

func (l *RedisLedger) Open(ctx context.Context, account Account) error {
	created, err := openAccountScript.Run(ctx, l.client, []string{l.key(account.AccountNumber)},
		account.Balance, account.Currency, account.Status, account.HolderName).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrAccountExists
	}
	return nil
}

func (l *RedisLedger) Get(ctx context.Context, accountNumber string) (Account, error) {
	fields, err := l.client.HGetAll(ctx, l.key(accountNumber)).Result()
	if err != nil {
		return Account{}, err
	}
	if len(fields) == 0 {
		return Account{}, ErrAccountNotFound
	}
	balance, err := strconv.ParseInt(fields["balance"], 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("corrupt balance for account %s: %w", accountNumber, err)
	}
	return Account{
		AccountNumber: accountNumber,
		HolderName:    fields["holder"],
		Balance:       balance,
		Currency:      fields["currency"],
		Status:        fields["status"],
	}, nil
}

func (l *RedisLedger) Apply(ctx context.Context, accountNumber string, delta int64) (int64, error) {
	rawResult, err := applyDeltaScript.Run(ctx, l.client, []string{l.key(accountNumber)}, delta).Result()
	if err != nil {
		return 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, fmt.Errorf("unexpected redis ledger response shape: %T", rawResult)
	}
	code, ok := values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected redis ledger code type: %T", values[0])
	}
	balance, ok := values[1].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected redis ledger balance type: %T", values[1])
	}

	switch code {
	case 1:
		return balance, nil
	case -1:
		return 0, ErrAccountNotFound
	case -2:
		return balance, ErrAccountNotActive
	case -3:
		return balance, ErrInsufficientFunds
	default:
		return 0, errors.New("unexpected redis ledger result code")
	}
}

func (l *RedisLedger) SetStatus(ctx context.Context, accountNumber, status string) error {
	updated, err := setStatusScript.Run(ctx, l.client, []string{l.key(accountNumber)}, status).Int64()
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrAccountNotFound
	}
	return nil
}
