package bankclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/transfa/wallet-service/internal/banksim"
)

func newSimulatorServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	sim := banksim.NewSimulator(banksim.NewMemoryLedger(), 0, "INR")
	if err := sim.Seed(context.Background(), map[string]int64{"1001": 5000}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	server := httptest.NewServer(banksim.Routes(banksim.NewHandler(sim), apiKey))
	t.Cleanup(server.Close)
	return server
}

func TestClient_WithdrawAndDeposit(t *testing.T) {
	server := newSimulatorServer(t, "key")
	client := NewClient(server.URL, "key")
	ctx := context.Background()

	balance, err := client.Withdraw(ctx, "1001", 2000)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if balance != 3000 {
		t.Fatalf("expected 3000 after withdraw, got %d", balance)
	}

	balance, err = client.Deposit(ctx, "1001", 500)
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if balance != 3500 {
		t.Fatalf("expected 3500 after deposit, got %d", balance)
	}

	balance, err = client.GetBalance(ctx, "1001")
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance != 3500 {
		t.Fatalf("expected 3500, got %d", balance)
	}
}

func TestClient_SurfacesSimulatorFailures(t *testing.T) {
	server := newSimulatorServer(t, "")
	client := NewClient(server.URL, "")

	_, err := client.Withdraw(context.Background(), "1001", 9000)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != banksim.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds code, got %q", apiErr.Code)
	}
	if apiErr.Message != "insufficient funds" {
		t.Fatalf("expected simulator message, got %q", apiErr.Message)
	}

	_, err = client.GetAccount(context.Background(), "0000")
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestClient_OpenAccount(t *testing.T) {
	server := newSimulatorServer(t, "")
	client := NewClient(server.URL+"/", "")

	account, err := client.OpenAccount(context.Background(), banksim.Account{AccountNumber: "2002", Balance: 10, Currency: "ngn"})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if account.Currency != "NGN" || account.Status != banksim.StatusActive {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestClient_UnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.GetBalance(context.Background(), "1001"); err == nil {
		t.Fatalf("expected error for unreachable server")
	}
}
