package app

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/pkg/bankclient"
)

func TestMapBankError(t *testing.T) {
	assert.NoError(t, mapBankError(nil, ""))

	err := mapBankError(banksim.ErrInsufficientFunds, banksim.CodeInsufficientFunds)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.NotErrorIs(t, err, domain.ErrExternalSystem)

	err = mapBankError(fmt.Errorf("withdraw: %w", context.DeadlineExceeded), banksim.CodeUnavailable)
	assert.ErrorIs(t, err, domain.ErrExternalSystem)
	assert.Equal(t, "bank request timed out", err.Error())

	err = mapBankError(errors.New("dial tcp: refused"), banksim.CodeUnavailable)
	assert.ErrorIs(t, err, domain.ErrExternalSystem)
	assert.Equal(t, "bank is temporarily unavailable", err.Error())

	err = mapBankError(banksim.ErrAccountNotActive, banksim.CodeAccountNotActive)
	assert.ErrorIs(t, err, domain.ErrExternalSystem)
	assert.True(t, isExternalCode(err, banksim.CodeAccountNotActive))
	assert.False(t, isExternalCode(err, banksim.CodeAccountNotFound))
	assert.Equal(t, banksim.ErrAccountNotActive.Error(), err.Error())
}

func TestRemoteBank_MatchesEmbeddedContract(t *testing.T) {
	ctx := context.Background()
	sim := banksim.NewSimulator(banksim.NewMemoryLedger(), 0, "INR")
	require.NoError(t, sim.Seed(ctx, map[string]int64{"90000001": 1000}))
	server := httptest.NewServer(banksim.Routes(banksim.NewHandler(sim), "secret"))
	t.Cleanup(server.Close)

	remote := NewRemoteBank(bankclient.NewClient(server.URL, "secret"))
	embedded := NewEmbeddedBank(sim)

	balance, err := remote.Withdraw(ctx, "90000001", 400)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)

	balance, err = embedded.Deposit(ctx, "90000001", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)

	balance, err = remote.GetBalance(ctx, "90000001")
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)

	account, err := remote.GetAccount(ctx, "90000001")
	require.NoError(t, err)
	assert.Equal(t, "INR", account.Currency)
	assert.Equal(t, banksim.StatusActive, account.Status)

	_, err = remote.Withdraw(ctx, "90000001", 5000)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = embedded.Withdraw(ctx, "90000001", 5000)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = remote.GetAccount(ctx, "unknown")
	assert.True(t, isExternalCode(err, banksim.CodeAccountNotFound))
	_, err = embedded.GetAccount(ctx, "unknown")
	assert.True(t, isExternalCode(err, banksim.CodeAccountNotFound))
}

func TestRemoteBank_WrongKeyIsExternalFailure(t *testing.T) {
	sim := banksim.NewSimulator(banksim.NewMemoryLedger(), 0, "INR")
	server := httptest.NewServer(banksim.Routes(banksim.NewHandler(sim), "secret"))
	t.Cleanup(server.Close)

	remote := NewRemoteBank(bankclient.NewClient(server.URL, "wrong"))
	_, err := remote.GetBalance(context.Background(), "90000001")
	assert.ErrorIs(t, err, domain.ErrExternalSystem)
}
