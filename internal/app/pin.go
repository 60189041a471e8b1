package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPINLength = 4
	maxPINLength = 6
)

func validPIN(pin string) bool {
	if len(pin) < minPINLength || len(pin) > maxPINLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SetTransactionPIN stores a bcrypt hash of the new PIN. Changing an existing PIN
// requires the current one, which counts towards the lockout like any other attempt.
func (s *Service) SetTransactionPIN(ctx context.Context, userID uuid.UUID, req domain.SetPINRequest) error {
	pin := strings.TrimSpace(req.PIN)
	if !validPIN(pin) {
		return domain.ErrInvalidPINFormat
	}

	_, err := s.repo.GetUserSecurityCredentialByUserID(ctx, userID)
	switch {
	case err == nil:
		if err := s.VerifyTransactionPIN(ctx, userID, req.CurrentPIN); err != nil {
			return err
		}
	case errors.Is(err, store.ErrTransactionPINNotSet):
		if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to load transaction PIN: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash transaction PIN: %w", err)
	}
	if err := s.repo.UpsertTransactionPIN(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to store transaction PIN: %w", err)
	}
	log.Printf("level=info component=auth_gate msg=\"transaction PIN updated\" user_id=%s", userID)
	return nil
}

// VerifyTransactionPIN checks pin against the stored hash. It returns domain.ErrPINNotSet,
// domain.ErrPINLocked or domain.ErrInvalidPIN, all of which wrap domain.ErrUnauthorized.
func (s *Service) VerifyTransactionPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	credential, err := s.repo.GetUserSecurityCredentialByUserID(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	if credential.LockedUntil != nil && credential.LockedUntil.After(now) {
		return domain.ErrPINLocked
	}

	pin = strings.TrimSpace(pin)
	if pin == "" {
		return domain.ErrInvalidPIN
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.TransactionPINHash), []byte(pin)); err != nil {
		updated, recordErr := s.repo.RecordFailedTransactionPINAttempt(ctx, userID, s.opts.PINMaxAttempts, int(s.opts.PINLockout.Seconds()))
		if recordErr != nil {
			return fmt.Errorf("failed to record PIN attempt: %w", recordErr)
		}
		if updated.LockedUntil != nil && updated.LockedUntil.After(now) {
			log.Printf("level=warn component=auth_gate msg=\"transaction PIN locked\" user_id=%s attempts=%d", userID, updated.FailedAttempts)
			return domain.ErrPINLocked
		}
		return domain.ErrInvalidPIN
	}

	if credential.FailedAttempts > 0 || credential.LockedUntil != nil {
		if err := s.repo.ResetTransactionPINFailureState(ctx, userID); err != nil {
			return fmt.Errorf("failed to reset PIN attempts: %w", err)
		}
	}
	return nil
}
