/**
 * @description
 * HTTP surface of the bank simulator. Responses follow the partner-bank contract:
 * {success, newBalance|balance, message} with a machine-readable code on failure.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: Router and URL parameters.
 */

package banksim

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// APIKeyHeader carries the shared secret expected by the simulator.
const APIKeyHeader = "X-Bank-API-Key"

// Response is the JSON envelope returned by every simulator endpoint.
type Response struct {
	Success    bool     `json:"success"`
	NewBalance *int64   `json:"newBalance,omitempty"`
	Balance    *int64   `json:"balance,omitempty"`
	Account    *Account `json:"account,omitempty"`
	Code       string   `json:"code,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// AmountRequest is the body of the deposit and withdraw endpoints.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// StatusRequest is the body of the status endpoint.
type StatusRequest struct {
	Status string `json:"status"`
}

// Handler exposes a Simulator over HTTP.
type Handler struct {
	sim *Simulator
}

func NewHandler(sim *Simulator) *Handler {
	return &Handler{sim: sim}
}

// Routes builds the simulator router. An empty apiKey disables the key check.
func Routes(h *Handler, apiKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(apiKey))
		h.Mount(r)
	})

	return r
}

// Mount registers the account routes on an existing router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/accounts", h.OpenAccount)
	r.Get("/accounts/{accountNumber}", h.GetAccount)
	r.Get("/accounts/{accountNumber}/balance", h.GetBalance)
	r.Post("/accounts/{accountNumber}/deposit", h.Deposit)
	r.Post("/accounts/{accountNumber}/withdraw", h.Withdraw)
	r.Put("/accounts/{accountNumber}/status", h.SetStatus)
}

func requireAPIKey(apiKey string) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected != "" {
				provided := strings.TrimSpace(r.Header.Get(APIKeyHeader))
				if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
					writeResponse(w, http.StatusUnauthorized, Response{Code: CodeInvalidRequest, Message: "invalid api key"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req Account
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Code: CodeInvalidRequest, Message: "invalid request body"})
		return
	}
	account, err := h.sim.OpenAccount(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResponse(w, http.StatusCreated, Response{Success: true, Account: &account, Balance: &account.Balance})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.sim.GetAccount(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResponse(w, http.StatusOK, Response{Success: true, Account: &account, Balance: &account.Balance})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.sim.GetBalance(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResponse(w, http.StatusOK, Response{Success: true, Balance: &balance})
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.sim.Deposit, "deposit successful")
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.sim.Withdraw, "withdrawal successful")
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, accountNumber string, amount int64) (int64, error), message string) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Code: CodeInvalidRequest, Message: "invalid request body"})
		return
	}
	balance, err := op(r.Context(), chi.URLParam(r, "accountNumber"), req.Amount)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResponse(w, http.StatusOK, Response{Success: true, NewBalance: &balance, Message: message})
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Code: CodeInvalidRequest, Message: "invalid request body"})
		return
	}
	if err := h.sim.SetStatus(r.Context(), chi.URLParam(r, "accountNumber"), strings.ToLower(strings.TrimSpace(req.Status))); err != nil {
		writeFailure(w, err)
		return
	}
	writeResponse(w, http.StatusOK, Response{Success: true, Message: "status updated"})
}

func writeFailure(w http.ResponseWriter, err error) {
	code := Code(err)
	status := http.StatusBadRequest
	message := err.Error()
	switch code {
	case CodeAccountNotFound:
		status = http.StatusNotFound
	case CodeAccountExists:
		status = http.StatusConflict
	case CodeUnavailable:
		status = http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			message = "bank request timed out"
		} else {
			message = "bank is temporarily unavailable"
		}
	}
	writeResponse(w, status, Response{Code: code, Message: message})
}

func writeResponse(w http.ResponseWriter, status int, payload Response) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}
