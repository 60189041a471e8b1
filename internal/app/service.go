/**
 * @description
 * This file contains the core of the wallet-service. The `Service` struct is the transfer
 * orchestrator: it coordinates the ledger store, the external bank, the idempotency store
 * and the event producer for every money-moving operation.
 *
 * Key features:
 * - One routine per transfer shape, each running its ledger writes in a single atomic scope.
 * - Transaction and Notification records are written in the same scope as the balance change.
 * - Bank-routed transfers are bracketed by a TransferIntent and reversed when the local write fails.
 * - Committed transactions are published to RabbitMQ after the fact.
 *
 * @dependencies
 * - internal/domain, internal/store: Ledger entities and persistence.
 * - pkg/kvstore, pkg/rabbitmq: Idempotency keys and event publication.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/transfa/wallet-service/internal/config"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
	"github.com/transfa/wallet-service/pkg/kvstore"
	"github.com/transfa/wallet-service/pkg/rabbitmq"
)

// Options tunes the orchestrator. Zero values fall back to the defaults below.
type Options struct {
	DefaultCurrency          string
	PaymentHandleDomain      string
	PINMaxAttempts           int
	PINLockout               time.Duration
	IdempotencyTTL           time.Duration
	IntentStaleAfter         time.Duration
	PublishTransactionEvents bool
}

// OptionsFromConfig maps the service configuration onto orchestrator options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		DefaultCurrency:          cfg.DefaultCurrency,
		PaymentHandleDomain:      cfg.PaymentHandleDomain,
		PINMaxAttempts:           cfg.PINMaxAttempts,
		PINLockout:               cfg.PINLockout(),
		IdempotencyTTL:           cfg.IdempotencyTTL(),
		IntentStaleAfter:         cfg.IntentStaleAfter(),
		PublishTransactionEvents: cfg.TransactionEventsEnabled,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = "INR"
	}
	if o.PaymentHandleDomain == "" {
		o.PaymentHandleDomain = "wallet"
	}
	if o.PINMaxAttempts <= 0 {
		o.PINMaxAttempts = 5
	}
	if o.PINLockout <= 0 {
		o.PINLockout = 15 * time.Minute
	}
	if o.IdempotencyTTL <= 0 {
		o.IdempotencyTTL = 24 * time.Hour
	}
	if o.IntentStaleAfter <= 0 {
		o.IntentStaleAfter = 2 * time.Minute
	}
	return o
}

// Service provides the wallet ledger operations.
type Service struct {
	repo          store.Repository
	bank          ExternalBank
	idempotency   kvstore.Store
	eventProducer rabbitmq.Publisher
	opts          Options
	now           func() time.Time
}

// NewService creates a new wallet service instance. A nil idempotency store or producer
// is replaced with an in-memory store and a no-op publisher.
func NewService(repo store.Repository, bank ExternalBank, idempotency kvstore.Store, producer rabbitmq.Publisher, opts Options) *Service {
	if idempotency == nil {
		idempotency = kvstore.NewMemoryStore()
	}
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	return &Service{
		repo:          repo,
		bank:          bank,
		idempotency:   idempotency,
		eventProducer: producer,
		opts:          opts.withDefaults(),
		now:           time.Now,
	}
}

// publishCompleted announces committed transactions. Publication failures are logged
// and never undo the ledger write.
func (s *Service) publishCompleted(ctx context.Context, txs ...*domain.Transaction) {
	if !s.opts.PublishTransactionEvents {
		return
	}
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		event := domain.NewTransactionCompletedEvent(tx)
		if err := s.eventProducer.Publish(ctx, domain.RoutingKeyTransactionCompleted, event); err != nil {
			log.Printf("level=warn component=orchestrator msg=\"failed to publish transaction event\" transaction_id=%s err=%v", tx.ID, err)
		}
	}
}
