package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfa/wallet-service/internal/domain"
)

type stubProvisioner struct {
	err   error
	calls []domain.ProvisionWalletRequest
}

func (p *stubProvisioner) ProvisionWallet(_ context.Context, req domain.ProvisionWalletRequest) (*domain.Wallet, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return &domain.Wallet{ID: uuid.New(), UserID: req.UserID}, nil
}

func TestHandleUserCreatedEvent_ProvisionsWallet(t *testing.T) {
	env := newTestEnv(t)
	handler := NewUserEventHandler(env.svc)
	userID := uuid.New()

	body := []byte(`{"user_id":"` + userID.String() + `","full_name":"Kiran Das","phone_number":"+919811111111"}`)
	require.True(t, handler.HandleUserCreatedEvent(body))
	require.True(t, handler.HandleUserCreatedEvent(body), "redelivery is harmless")

	wallet, err := env.repo.FindWalletByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)

	user, err := env.repo.FindUserByPhone(context.Background(), "+919811111111")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
}

func TestHandleUserCreatedEvent_AckDecisions(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		wantAck bool
		calls   int
	}{
		{name: "malformed body", body: `{not json`, wantAck: true},
		{name: "missing user id", body: `{"full_name":"No Id"}`, wantAck: true},
		{name: "validation failure", body: `{"user_id":"` + uuid.NewString() + `"}`, err: domain.Validationf("fullName is required"), wantAck: true, calls: 1},
		{name: "conflict", body: `{"user_id":"` + uuid.NewString() + `","full_name":"A"}`, err: domain.NewKindError(domain.ErrConflict, "handle taken"), wantAck: true, calls: 1},
		{name: "transient failure", body: `{"user_id":"` + uuid.NewString() + `","full_name":"A"}`, err: errors.New("connection reset"), wantAck: false, calls: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubProvisioner{err: tc.err}
			handler := NewUserEventHandler(stub)
			assert.Equal(t, tc.wantAck, handler.HandleUserCreatedEvent([]byte(tc.body)))
			assert.Len(t, stub.calls, tc.calls)
		})
	}
}
