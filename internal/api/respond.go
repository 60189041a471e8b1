package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/transfa/wallet-service/internal/domain"
)

type envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("level=warn component=api msg=\"failed to encode response\" err=%v", err)
		}
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "error", Message: message})
}

// writeServiceError maps a service error onto a status code. Messages of domain errors
// are meant for the caller; anything unclassified is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var extErr *domain.ExternalError
	switch {
	case errors.Is(err, domain.ErrPINNotSet):
		writeError(w, http.StatusPreconditionFailed, "Transaction PIN is not set. Please create your PIN first.")
	case errors.Is(err, domain.ErrPINLocked):
		writeError(w, http.StatusLocked, "Too many incorrect PIN attempts. Please wait and try again.")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &extErr):
		log.Printf("level=error component=api endpoint=%s outcome=external_failure code=%s err=%v", endpoint, extErr.Code, err)
		writeError(w, http.StatusInternalServerError, extErr.Error())
	default:
		log.Printf("level=error component=api endpoint=%s outcome=error request_id=%s err=%v", endpoint, requestID(r), err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
