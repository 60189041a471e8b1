package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-service/internal/domain"
)

// WalletProvisioner is the part of Service the user event handler needs.
type WalletProvisioner interface {
	ProvisionWallet(ctx context.Context, req domain.ProvisionWalletRequest) (*domain.Wallet, error)
}

// UserEventHandler provisions wallets from identity events.
type UserEventHandler struct {
	provisioner WalletProvisioner
	timeout     time.Duration
}

func NewUserEventHandler(provisioner WalletProvisioner) *UserEventHandler {
	return &UserEventHandler{provisioner: provisioner, timeout: 30 * time.Second}
}

// HandleUserCreatedEvent processes a `user.created` event. It returns true when the
// message should be acknowledged.
func (h *UserEventHandler) HandleUserCreatedEvent(body []byte) bool {
	var event domain.UserCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=user_consumer msg=\"malformed user.created event; dropping\" err=%v", err)
		return true
	}
	if event.UserID == uuid.Nil {
		log.Printf("level=warn component=user_consumer msg=\"user.created event without user_id; dropping\"")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	wallet, err := h.provisioner.ProvisionWallet(ctx, domain.ProvisionWalletRequest{
		UserID:      event.UserID,
		FullName:    event.FullName,
		PhoneNumber: event.PhoneNumber,
		Email:       event.Email,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict) {
			log.Printf("level=error component=user_consumer msg=\"wallet provisioning rejected; dropping\" user_id=%s err=%v", event.UserID, err)
			return true
		}
		log.Printf("level=error component=user_consumer msg=\"wallet provisioning failed; will retry\" user_id=%s err=%v", event.UserID, err)
		return false
	}

	log.Printf("level=info component=user_consumer msg=\"wallet ready\" user_id=%s wallet_id=%s", event.UserID, wallet.ID)
	return true
}
