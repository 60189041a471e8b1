package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
	"github.com/transfa/wallet-service/internal/store"
)

const maxHandleSlugLength = 20

var errRecipientNotFound = domain.NewKindError(domain.ErrNotFound, "recipient not found")

// GetWallet returns the caller's wallet, creating an empty one for users that were
// registered before wallets were provisioned.
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.repo.FindWalletByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, store.ErrWalletNotFound) {
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	wallet, err = s.createWallet(ctx, s.repo, user)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=orchestrator msg=\"wallet backfilled\" user_id=%s wallet_id=%s", userID, wallet.ID)
	return wallet, nil
}

// ProvisionWallet records the user read model and creates the user's wallet. It is safe
// to call repeatedly for the same user.
func (s *Service) ProvisionWallet(ctx context.Context, req domain.ProvisionWalletRequest) (*domain.Wallet, error) {
	if req.UserID == uuid.Nil {
		return nil, domain.Validationf("userId is required")
	}
	user := &domain.User{
		ID:          req.UserID,
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: trimmedOrNil(req.PhoneNumber),
		Email:       trimmedOrNil(req.Email),
	}

	var wallet *domain.Wallet
	err := s.repo.RunInTx(ctx, func(q store.Queries) error {
		if err := q.UpsertUser(ctx, user); err != nil {
			return err
		}
		created, err := s.createWallet(ctx, q, user)
		if err != nil {
			return err
		}
		wallet = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=orchestrator msg=\"wallet provisioned\" user_id=%s upi_id=%s", user.ID, wallet.UPIID)
	return wallet, nil
}

func (s *Service) createWallet(ctx context.Context, q store.Queries, user *domain.User) (*domain.Wallet, error) {
	return q.CreateWallet(ctx, &domain.Wallet{
		ID:       uuid.New(),
		UserID:   user.ID,
		Balance:  0,
		Currency: s.opts.DefaultCurrency,
		UPIID:    s.paymentHandle(user),
	})
}

// paymentHandle derives "<name>.<id prefix>@<domain>" from the user's name.
func (s *Service) paymentHandle(user *domain.User) string {
	var b strings.Builder
	for _, r := range strings.ToLower(user.FullName) {
		if b.Len() >= maxHandleSlugLength {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if slug == "" {
		slug = "user"
	}
	return fmt.Sprintf("%s.%s@%s", slug, strings.ReplaceAll(user.ID.String(), "-", "")[:8], s.opts.PaymentHandleDomain)
}

// resolveRecipient finds the recipient's user id from a user id, a payment handle or a
// phone number, in that order, and makes sure the recipient has a wallet.
func (s *Service) resolveRecipient(ctx context.Context, identifier string) (uuid.UUID, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return uuid.Nil, domain.ErrMissingRecipient
	}

	recipientID, err := s.lookupRecipient(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, errRecipientNotFound
		}
		return uuid.Nil, err
	}
	if _, err := s.GetWallet(ctx, recipientID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, errRecipientNotFound
		}
		return uuid.Nil, err
	}
	return recipientID, nil
}

func (s *Service) lookupRecipient(ctx context.Context, identifier string) (uuid.UUID, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		if _, err := s.repo.FindUserByID(ctx, id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}
	if strings.Contains(identifier, "@") {
		wallet, err := s.repo.FindWalletByUPIID(ctx, strings.ToLower(identifier))
		if err != nil {
			return uuid.Nil, err
		}
		return wallet.UserID, nil
	}
	user, err := s.repo.FindUserByPhone(ctx, identifier)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID) string {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil || user.FullName == "" {
		return "a wallet user"
	}
	return user.FullName
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
