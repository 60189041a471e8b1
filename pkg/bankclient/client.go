/**
 * @description
 * This package provides a client for the external bank simulator when it runs as a
 * standalone service. It mirrors the simulator's in-process contract so the wallet-service
 * can switch between embedded and remote modes without changing the orchestrator.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/banksim: Shared wire types and failure codes.
 */
package bankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/transfa/wallet-service/internal/banksim"
)

// Client is a client for the bank simulator API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new bank simulator client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a failure reported by the simulator.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bank simulator error (status %d)", e.StatusCode)
	}
	return e.Message
}

// OpenAccount creates an account at the simulator.
func (c *Client) OpenAccount(ctx context.Context, account banksim.Account) (*banksim.Account, error) {
	resp, err := c.do(ctx, "open_account", http.MethodPost, "/accounts", account)
	if err != nil {
		return nil, err
	}
	if resp.Account == nil {
		return nil, fmt.Errorf("bank simulator response missing account")
	}
	return resp.Account, nil
}

// GetAccount fetches the full account record.
func (c *Client) GetAccount(ctx context.Context, accountNumber string) (*banksim.Account, error) {
	resp, err := c.do(ctx, "get_account", http.MethodGet, "/accounts/"+url.PathEscape(accountNumber), nil)
	if err != nil {
		return nil, err
	}
	if resp.Account == nil {
		return nil, fmt.Errorf("bank simulator response missing account")
	}
	return resp.Account, nil
}

// GetBalance fetches the authoritative balance of an account.
func (c *Client) GetBalance(ctx context.Context, accountNumber string) (int64, error) {
	resp, err := c.do(ctx, "get_balance", http.MethodGet, "/accounts/"+url.PathEscape(accountNumber)+"/balance", nil)
	if err != nil {
		return 0, err
	}
	if resp.Balance == nil {
		return 0, fmt.Errorf("bank simulator response missing balance")
	}
	return *resp.Balance, nil
}

// Deposit credits an account and returns the new balance.
func (c *Client) Deposit(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	return c.move(ctx, "deposit", accountNumber, amount)
}

// Withdraw debits an account and returns the new balance.
func (c *Client) Withdraw(ctx context.Context, accountNumber string, amount int64) (int64, error) {
	return c.move(ctx, "withdraw", accountNumber, amount)
}

func (c *Client) move(ctx context.Context, op, accountNumber string, amount int64) (int64, error) {
	path := "/accounts/" + url.PathEscape(accountNumber) + "/" + op
	resp, err := c.do(ctx, op, http.MethodPost, path, banksim.AmountRequest{Amount: amount})
	if err != nil {
		return 0, err
	}
	if resp.NewBalance == nil {
		return 0, fmt.Errorf("bank simulator response missing new balance")
	}
	return *resp.NewBalance, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) (*banksim.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set(banksim.APIKeyHeader, c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	var decoded banksim.Response
	if err := json.Unmarshal(bodyBytes, &decoded); err != nil {
		log.Printf("level=warn component=bank_client op=%s status=%d msg=\"unparsable response body\"", op, resp.StatusCode)
		return nil, fmt.Errorf("failed to decode %s response (status %d)", op, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !decoded.Success {
		log.Printf("level=warn component=bank_client op=%s status=%d code=%s message=%q", op, resp.StatusCode, decoded.Code, decoded.Message)
		return nil, &APIError{StatusCode: resp.StatusCode, Code: decoded.Code, Message: decoded.Message}
	}

	return &decoded, nil
}
