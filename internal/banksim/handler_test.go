package banksim

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *Simulator) {
	t.Helper()
	sim := NewSimulator(NewMemoryLedger(), 0, "INR")
	require.NoError(t, sim.Seed(context.Background(), map[string]int64{"1001": 5000}))
	server := httptest.NewServer(Routes(NewHandler(sim), apiKey))
	t.Cleanup(server.Close)
	return server, sim
}

func doJSON(t *testing.T, method, url, apiKey string, body interface{}) (*http.Response, Response) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHandler_WithdrawReturnsNewBalance(t *testing.T) {
	server, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/accounts/1001/withdraw", "", AmountRequest{Amount: 2000})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	require.NotNil(t, body.NewBalance)
	assert.Equal(t, int64(3000), *body.NewBalance)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/accounts/1001/balance", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body.Balance)
	assert.Equal(t, int64(3000), *body.Balance)
}

func TestHandler_FailuresCarryCodeAndMessage(t *testing.T) {
	server, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/accounts/1001/withdraw", "", AmountRequest{Amount: 9000})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, CodeInsufficientFunds, body.Code)
	assert.Equal(t, "insufficient funds", body.Message)

	resp, body = doJSON(t, http.MethodPost, server.URL+"/accounts/0000/deposit", "", AmountRequest{Amount: 10})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeAccountNotFound, body.Code)
}

func TestHandler_OpenAccountAndFreeze(t *testing.T) {
	server, sim := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/accounts", "", Account{AccountNumber: "2002", Balance: 100})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, body.Account)
	assert.Equal(t, "INR", body.Account.Currency)

	resp, _ = doJSON(t, http.MethodPut, server.URL+"/accounts/2002/status", "", StatusRequest{Status: "Frozen"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	account, err := sim.GetAccount(context.Background(), "2002")
	require.NoError(t, err)
	assert.Equal(t, StatusFrozen, account.Status)
}

func TestHandler_RequiresAPIKeyWhenConfigured(t *testing.T) {
	server, _ := newTestServer(t, "secret")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/accounts/1001/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/accounts/1001/balance", "secret", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
}
