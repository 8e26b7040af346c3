package service

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	currency   string
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl. New wallets are opened
// in currency.
func NewWalletService(walletRepo ports.WalletRepository, currency string, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{walletRepo: walletRepo, currency: currency, log: log}
}

// GetWallet returns the owner's wallet, opening it on first access.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetOrCreate(ctx, ownerID, s.currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	return wallet, nil
}

// SetWalletStatus changes the administrative status of a wallet. CLOSED is
// terminal.
func (s *WalletServiceImpl) SetWalletStatus(ctx context.Context, actor domain.Actor, walletID uuid.UUID, status string) (*domain.Wallet, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden()
	}
	next := domain.WalletStatus(status)
	if !next.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown wallet status %q", status))
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if wallet.Status == next {
		return wallet, nil
	}
	if !wallet.CanTransitionTo(next) {
		return nil, apperror.ErrWalletTransition(string(wallet.Status), string(next))
	}

	if err := s.walletRepo.UpdateStatus(ctx, walletID, next); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, apperror.ErrNotFound("wallet")
		case errors.Is(err, domain.ErrWalletClosed) && next == domain.WalletStatusClosed:
			wallet.Status = next
			return wallet, nil
		case errors.Is(err, domain.ErrWalletClosed):
			return nil, apperror.ErrWalletTransition(string(domain.WalletStatusClosed), string(next))
		}
		return nil, apperror.InternalError(fmt.Errorf("update wallet status: %w", err))
	}

	s.log.Info().
		Str("wallet_id", walletID.String()).
		Str("from", string(wallet.Status)).
		Str("to", string(next)).
		Str("actor_id", actor.ID.String()).
		Msg("wallet status changed")

	wallet.Status = next
	return wallet, nil
}
