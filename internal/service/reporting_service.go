package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
) ports.ReportingService {
	return &reportingService{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		transactor: transactor,
	}
}

// ListTransactions returns a page of transactions, newest first.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return nil, 0, apperror.Validation("from must not be after to")
	}

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// GetTransaction returns a single transaction. Users only see their own;
// someone else's transaction is reported as not found.
func (s *reportingService) GetTransaction(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if txn == nil || (!actor.IsAdmin() && txn.OwnerID != actor.ID) {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// GetStats returns aggregated counts and settled sums for a wallet.
func (s *reportingService) GetStats(ctx context.Context, walletID uuid.UUID) (*ports.TransactionStats, error) {
	if _, err := s.mustWallet(ctx, walletID); err != nil {
		return nil, err
	}
	stats, err := s.txRepo.GetStats(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return stats, nil
}

// Reconcile compares the stored balance with the net effect of every
// COMPLETED transaction. Any drift means the ledger was changed outside
// the settlement engine.
//
// The wallet row stays locked while the sum is read. Settlements take the
// same lock before writing, so both figures describe the same ledger state.
func (s *reportingService) Reconcile(ctx context.Context, walletID uuid.UUID) (*ports.Reconciliation, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	sum, err := s.txRepo.SumSettledEffects(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum settled effects: %w", err))
	}

	drift := wallet.Balance.Sub(sum)
	return &ports.Reconciliation{
		WalletID:      walletID,
		StoredBalance: wallet.Balance,
		SettledSum:    sum,
		Drift:         drift,
		Consistent:    drift.IsZero(),
	}, nil
}

func (s *reportingService) mustWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}
