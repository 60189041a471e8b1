/**
 * @description
 * Scheduled job implementations for the wallet-service.
 */
package app

import (
	"context"
	"log/slog"
	"time"
)

// IntentReconciler is the part of Service the reconciliation job needs.
type IntentReconciler interface {
	ReconcileStaleIntents(ctx context.Context, limit int) (ReconcileReport, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	reconciler IntentReconciler
	logger     *slog.Logger
	batchSize  int
	timeout    time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(reconciler IntentReconciler, logger *slog.Logger) *Jobs {
	return &Jobs{
		reconciler: reconciler,
		logger:     logger,
		batchSize:  defaultReconcileLimit,
		timeout:    5 * time.Minute,
	}
}

// ReconcileTransferIntents resolves stale transfer intents.
func (j *Jobs) ReconcileTransferIntents() {
	j.logger.Info("starting transfer intent reconciliation job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconciler.ReconcileStaleIntents(ctx, j.batchSize)
	if err != nil {
		j.logger.Error("failed to reconcile transfer intents", "error", err)
		return
	}

	j.logger.Info("transfer intent reconciliation job finished",
		"scanned", report.Scanned,
		"failed", report.Failed,
		"compensated", report.Compensated,
		"compensation_failed", report.CompensationFailed,
		"skipped", report.Skipped,
	)
}
