package api

import (
	"net/http"

	"github.com/transfa/wallet-service/internal/domain"
)

// LedgerTransactionHandler applies a credit or debit on behalf of another service. It
// does not require a transaction PIN.
func (h *Handler) LedgerTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LedgerTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.service.LedgerTransaction(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "ledger_transaction", err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

// ProvisionWalletHandler upserts the user read model and ensures the user has a wallet.
func (h *Handler) ProvisionWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ProvisionWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	wallet, err := h.service.ProvisionWallet(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "provision_wallet", err)
		return
	}
	writeSuccess(w, http.StatusCreated, wallet)
}
