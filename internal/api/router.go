/**
 * @description
 * This file sets up the HTTP router for the wallet-service. User-facing routes sit
 * behind JWT authentication; routes under /internal are reserved for trusted services
 * and require the shared internal API key.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: Router and standard middleware.
 * - github.com/go-chi/cors: CORS handling for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the wallet-service router.
func NewRouter(h *Handler, jwtSecret, internalKey string, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", InternalAPIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/ledger-transactions", h.LedgerTransactionHandler)
		r.Post("/wallets", h.ProvisionWalletHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(JWTAuthMiddleware(jwtSecret))

		r.Get("/wallet", h.GetWalletHandler)
		r.Put("/wallet/pin", h.SetPINHandler)
		r.Post("/wallet/add-money", h.AddMoneyHandler)
		r.Post("/wallet/transfer", h.TransferHandler)
		r.Post("/wallet/qr-payment", h.QRPaymentHandler)
		r.Post("/wallet/transfer-to-bank", h.TransferToBankHandler)
		r.Post("/wallet/transfer-from-bank", h.TransferFromBankHandler)

		r.Get("/bank-accounts", h.ListBankAccountsHandler)
		r.Post("/bank-accounts", h.LinkBankAccountHandler)
		r.Put("/bank-accounts/{id}/default", h.SetDefaultBankAccountHandler)
		r.Delete("/bank-accounts/{id}", h.DeleteBankAccountHandler)
		r.Post("/bank-accounts/{id}/sync", h.SyncBankAccountHandler)
		r.Get("/bank-accounts/{id}/balance", h.BankAccountBalanceHandler)

		r.Get("/transactions", h.ListTransactionsHandler)
		r.Get("/transactions/summary", h.TransactionSummaryHandler)
		r.Get("/transactions/{id}", h.GetTransactionHandler)

		r.Get("/notifications", h.ListNotificationsHandler)
	})

	return r
}
