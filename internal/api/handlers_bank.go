package api

import (
	"net/http"

	"github.com/transfa/wallet-service/internal/domain"
)

func (h *Handler) ListBankAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.ListBankAccounts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list_bank_accounts", err)
		return
	}
	writeSuccess(w, http.StatusOK, accounts)
}

// LinkBankAccountHandler links and verifies a bank account against the bank.
func (h *Handler) LinkBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req domain.LinkBankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.service.LinkBankAccount(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, "link_bank_account", err)
		return
	}
	writeSuccess(w, http.StatusCreated, account)
}

func (h *Handler) SetDefaultBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.service.SetDefaultBankAccount(r.Context(), userID, accountID)
	if err != nil {
		writeServiceError(w, r, "set_default_bank_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, account)
}

func (h *Handler) DeleteBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBankAccount(r.Context(), userID, accountID); err != nil {
		writeServiceError(w, r, "delete_bank_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"message": "Bank account removed"})
}

func (h *Handler) SyncBankAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.SyncBankAccount(r.Context(), userID, accountID)
	if err != nil {
		writeServiceError(w, r, "sync_bank_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

// BankAccountBalanceHandler reports the bank's live balance without updating the mirror.
func (h *Handler) BankAccountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.GetBankAccountBalance(r.Context(), userID, accountID)
	if err != nil {
		writeServiceError(w, r, "bank_account_balance", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}
