package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/transfa/wallet-service/internal/domain"
)

// parseTimeParam accepts RFC3339 timestamps or plain dates (midnight UTC).
func parseTimeParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parsePage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	var limit, offset int
	var err error
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return 0, 0, false
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "offset must be a number")
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func parseWindow(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be an RFC3339 timestamp or YYYY-MM-DD date")
		return nil, nil, false
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be an RFC3339 timestamp or YYYY-MM-DD date")
		return nil, nil, false
	}
	return from, to, true
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	txs, err := h.service.ListTransactions(r.Context(), userID, domain.TransactionFilter{
		Type:   r.URL.Query().Get("type"),
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, "list_transactions", err)
		return
	}
	writeSuccess(w, http.StatusOK, txs)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	transactionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		writeServiceError(w, r, "get_transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, tx)
}

// TransactionSummaryHandler totals completed transactions by type.
func (h *Handler) TransactionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	summary, err := h.service.SummarizeTransactions(r.Context(), userID, from, to)
	if err != nil {
		writeServiceError(w, r, "transaction_summary", err)
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

func (h *Handler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}
	notifications, err := h.service.ListNotifications(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, r, "list_notifications", err)
		return
	}
	writeSuccess(w, http.StatusOK, notifications)
}
