package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

const (
	defaultReconcileLimit = 100
	maxReconcileLimit     = 500
	reconcileLockKey      = "lock:intent-reconcile"
)

// ReconcileReport counts what one reconciliation pass did.
type ReconcileReport struct {
	Scanned            int `json:"scanned"`
	Failed             int `json:"failed"`
	Compensated        int `json:"compensated"`
	CompensationFailed int `json:"compensation_failed"`
	Skipped            int `json:"skipped"`
}

// ReconcileStaleIntents resolves transfer intents that were left open for longer than
// the configured stale window. Pending intents are failed, and a request whose bank call
// lands afterwards reverses it itself. Intents whose bank call succeeded without a local
// commit are reversed.
func (s *Service) ReconcileStaleIntents(ctx context.Context, limit int) (ReconcileReport, error) {
	var report ReconcileReport
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	if limit > maxReconcileLimit {
		limit = maxReconcileLimit
	}

	// A pass can take a while with bank latency, so the lock lives as long as the stale window.
	// The token keeps a pass that outlived its lock from releasing another replica's.
	token := uuid.NewString()
	claimed, err := s.idempotency.SetNX(ctx, reconcileLockKey, token, s.opts.IntentStaleAfter)
	if err != nil {
		return report, fmt.Errorf("failed to acquire reconcile lock: %w", err)
	}
	if !claimed {
		log.Printf("level=info component=reconciler msg=\"reconcile already running elsewhere; skipping\"")
		return report, nil
	}
	defer func() {
		released, err := s.idempotency.DeleteIfValue(context.WithoutCancel(ctx), reconcileLockKey, token)
		if err != nil {
			log.Printf("level=warn component=reconciler msg=\"failed to release reconcile lock\" err=%v", err)
			return
		}
		if !released {
			log.Printf("level=warn component=reconciler msg=\"reconcile lock expired before the pass finished\"")
		}
	}()

	cutoff := s.now().Add(-s.opts.IntentStaleAfter)
	intents, err := s.repo.ListStaleTransferIntents(ctx, cutoff, limit)
	if err != nil {
		return report, fmt.Errorf("failed to list stale intents: %w", err)
	}
	report.Scanned = len(intents)

	for i := range intents {
		intent := &intents[i]
		switch intent.Status {
		case domain.IntentStatusPending:
			if !s.claimStale(ctx, intent, cutoff, []string{domain.IntentStatusPending}, domain.IntentStatusFailed, "abandoned before the bank confirmed the transfer") {
				report.Skipped++
				continue
			}
			report.Failed++
		case domain.IntentStatusExternalSucceeded, domain.IntentStatusCompensationFailed:
			reason := fmt.Sprintf("local commit missing for %s intent", intent.Kind)
			if !s.claimStale(ctx, intent, cutoff, reconcilableIntentStatuses, domain.IntentStatusCompensationFailed, reason) {
				report.Skipped++
				continue
			}
			if s.reverse(ctx, intent, reason) {
				report.Compensated++
			} else {
				report.CompensationFailed++
			}
		default:
			report.Skipped++
		}
	}

	if report.Scanned > 0 {
		log.Printf("level=info component=reconciler msg=\"reconcile pass finished\" scanned=%d failed=%d compensated=%d compensation_failed=%d skipped=%d",
			report.Scanned, report.Failed, report.Compensated, report.CompensationFailed, report.Skipped)
	}
	return report, nil
}

var reconcilableIntentStatuses = []string{
	domain.IntentStatusExternalSucceeded,
	domain.IntentStatusCompensationFailed,
}

// claimStale moves intent to status under its row lock, provided it is still in one of
// from and untouched since cutoff. A request that advanced the intent since the listing
// wins.
func (s *Service) claimStale(ctx context.Context, intent *domain.TransferIntent, cutoff time.Time, from []string, status, reason string) bool {
	claimed := false
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		current, err := q.LockTransferIntent(ctx, intent.ID)
		if err != nil {
			return err
		}
		if !current.UpdatedAt.Before(cutoff) {
			return nil
		}
		claimed, err = q.TransitionTransferIntent(ctx, intent.ID, from, status, &reason)
		return err
	})
	if err != nil {
		log.Printf("level=warn component=reconciler msg=\"failed to claim intent\" intent_id=%s status=%s err=%v", intent.ID, status, err)
		return false
	}
	return claimed
}
