/**
 * @description
 * HTTP handlers for the wallet-service. Handlers decode the request, run the transaction
 * PIN check where money leaves the caller's control, call the application service and
 * write the `{status, data}` envelope.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: URL parameters and request ids.
 * - internal/app, internal/domain: Service logic and payloads.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/app"
	"github.com/transfa/wallet-service/internal/domain"
)

// Handler holds the application service the handlers use.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// callerID reads the authenticated user id, writing a 401 when it is missing.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthenticated")
		return uuid.Nil, false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// positiveAmount rejects non-positive amounts ahead of the PIN check.
func positiveAmount(w http.ResponseWriter, r *http.Request, amount int64) bool {
	if amount <= 0 {
		writeServiceError(w, r, "validate", domain.ErrInvalidAmount)
		return false
	}
	return true
}

// authorizeTransactionPIN gates money-moving requests. It writes the failure response
// itself and reports whether the request may proceed.
func (h *Handler) authorizeTransactionPIN(w http.ResponseWriter, r *http.Request, userID uuid.UUID, pin string) bool {
	err := h.service.VerifyTransactionPIN(r.Context(), userID, pin)
	if err == nil {
		return true
	}
	log.Printf("level=warn component=api msg=\"transaction pin rejected\" user_id=%s path=%s err=%v", userID, r.URL.Path, err)
	writeServiceError(w, r, "authorize_pin", err)
	return false
}

// GetWalletHandler returns the caller's wallet, creating it if it is missing.
func (h *Handler) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "get_wallet", err)
		return
	}
	writeSuccess(w, http.StatusOK, wallet)
}

func (h *Handler) SetPINHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.SetPINRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.SetTransactionPIN(r.Context(), userID, req); err != nil {
		writeServiceError(w, r, "set_pin", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"message": "Transaction PIN updated"})
}

// AddMoneyHandler credits the caller's wallet from an external funding source.
func (h *Handler) AddMoneyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.TopUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.service.TopUp(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, "add_money", err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !positiveAmount(w, r, req.Amount) {
		return
	}
	if !h.authorizeTransactionPIN(w, r, userID, req.TransactionPIN) {
		return
	}
	result, err := h.service.Transfer(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, "transfer", err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

func (h *Handler) QRPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.QRPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !positiveAmount(w, r, req.Amount) {
		return
	}
	if !h.authorizeTransactionPIN(w, r, userID, req.TransactionPIN) {
		return
	}
	result, err := h.service.QRPayment(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, "qr_payment", err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

func (h *Handler) TransferToBankHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.BankTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !positiveAmount(w, r, req.Amount) {
		return
	}
	if !h.authorizeTransactionPIN(w, r, userID, req.TransactionPIN) {
		return
	}
	result, err := h.service.TransferToBank(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, "transfer_to_bank", err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

func (h *Handler) TransferFromBankHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.BankTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !positiveAmount(w, r, req.Amount) {
		return
	}
	if !h.authorizeTransactionPIN(w, r, userID, req.TransactionPIN) {
		return
	}
	result, err := h.service.TransferFromBank(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, "transfer_from_bank", err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}
