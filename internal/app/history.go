package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalisePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListTransactions returns the caller's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	filter.Type = strings.ToLower(strings.TrimSpace(filter.Type))
	if filter.Type != "" && !domain.IsTransactionType(filter.Type) {
		return nil, domain.ErrUnsupportedType
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.Validationf("'to' must not be before 'from'")
	}
	filter.Limit, filter.Offset = normalisePage(filter.Limit, filter.Offset)
	return s.repo.ListTransactions(ctx, userID, filter)
}

func (s *Service) GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*domain.Transaction, error) {
	return s.repo.FindTransactionByID(ctx, userID, transactionID)
}

// SummarizeTransactions totals the caller's completed transactions by type within the
// optional [from, to) window.
func (s *Service) SummarizeTransactions(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*domain.TransactionSummary, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.Validationf("'to' must not be before 'from'")
	}
	items, err := s.repo.SummarizeTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &domain.TransactionSummary{From: from, To: to, Items: items}
	for _, item := range items {
		summary.Credits += item.CreditAmount
		summary.Debits += item.DebitAmount
	}
	summary.Net = majorUnits(summary.Credits - summary.Debits)
	return summary, nil
}

func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	limit, offset = normalisePage(limit, offset)
	return s.repo.ListNotifications(ctx, userID, limit, offset)
}
