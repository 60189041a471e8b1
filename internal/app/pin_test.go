package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/domain"
)

func TestSetTransactionPIN_ValidatesFormat(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "Asha", "")

	for _, pin := range []string{"", "123", "1234567", "12a4"} {
		err := env.svc.SetTransactionPIN(context.Background(), userID, domain.SetPINRequest{PIN: pin})
		assert.ErrorIs(t, err, domain.ErrValidation, "pin %q", pin)
	}
}

func TestSetTransactionPIN_ChangeRequiresCurrentPIN(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")

	require.NoError(t, env.svc.SetTransactionPIN(ctx, userID, domain.SetPINRequest{PIN: "1234"}))

	err := env.svc.SetTransactionPIN(ctx, userID, domain.SetPINRequest{CurrentPIN: "0000", PIN: "5678"})
	require.ErrorIs(t, err, domain.ErrInvalidPIN)

	require.NoError(t, env.svc.SetTransactionPIN(ctx, userID, domain.SetPINRequest{CurrentPIN: "1234", PIN: "567890"}))
	require.NoError(t, env.svc.VerifyTransactionPIN(ctx, userID, "567890"))
	require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, "1234"), domain.ErrUnauthorized)
}

func TestVerifyTransactionPIN_NotSet(t *testing.T) {
	env := newTestEnv(t)
	userID := env.newUser(t, "Asha", "")

	err := env.svc.VerifyTransactionPIN(context.Background(), userID, "1234")
	require.ErrorIs(t, err, domain.ErrPINNotSet)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyTransactionPIN_LocksAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")
	require.NoError(t, env.svc.SetTransactionPIN(ctx, userID, domain.SetPINRequest{PIN: "2468"}))

	require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, "1111"), domain.ErrInvalidPIN)
	require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, "2222"), domain.ErrInvalidPIN)
	require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, "3333"), domain.ErrPINLocked)

	// The correct PIN is refused while locked.
	require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, "2468"), domain.ErrPINLocked)
}

func TestVerifyTransactionPIN_SuccessResetsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")
	require.NoError(t, env.svc.SetTransactionPIN(ctx, userID, domain.SetPINRequest{PIN: "2468"}))

	require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, "1111"), domain.ErrInvalidPIN)
	require.NoError(t, env.svc.VerifyTransactionPIN(ctx, userID, "2468"))

	credential, err := env.repo.GetUserSecurityCredentialByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, credential.FailedAttempts)
	assert.Nil(t, credential.LockedUntil)
}

func TestVerifyTransactionPIN_EmptyPINDoesNotCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.newUser(t, "Asha", "")
	require.NoError(t, env.svc.SetTransactionPIN(ctx, userID, domain.SetPINRequest{PIN: "2468"}))

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, env.svc.VerifyTransactionPIN(ctx, userID, " "), domain.ErrInvalidPIN)
	}
	require.NoError(t, env.svc.VerifyTransactionPIN(ctx, userID, "2468"))
}
