package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementConfig holds the settlement policy switches.
type SettlementConfig struct {
	AllowReversals bool
}

// SettlementServiceImpl implements ports.SettlementService. Every call runs
// in one database transaction that locks the transaction row, then the
// wallet row, so concurrent settlements of one wallet are serialized.
type SettlementServiceImpl struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	publisher  ports.EventPublisher
	metrics    ports.SettlementMetrics
	cfg        SettlementConfig
	log        zerolog.Logger
	now        func() time.Time
}

// NewSettlementService creates a new SettlementServiceImpl. publisher and
// metrics may be nil.
func NewSettlementService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	metrics ports.SettlementMetrics,
	cfg SettlementConfig,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		transactor: transactor,
		publisher:  publisher,
		metrics:    metrics,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// settleInput is the mode-independent form of a settlement request.
type settleInput struct {
	mode      domain.SettlementMode
	txID      uuid.UUID
	status    string
	overrides domain.Overrides
	adminNote *string
}

// Settle moves a transaction through the approval workflow.
func (s *SettlementServiceImpl) Settle(ctx context.Context, req ports.SettleRequest) (*ports.SettlementResult, error) {
	if !req.Actor.Role.CanSettle() {
		return nil, apperror.ErrForbidden()
	}
	if req.Overrides.Amount != nil {
		if err := domain.ValidateAmount(*req.Overrides.Amount); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	return s.run(ctx, settleInput{
		mode:      domain.SettlementApproval,
		txID:      req.TransactionID,
		status:    req.Status,
		overrides: req.Overrides,
		adminNote: req.AdminNote,
	})
}

// Reverse undoes a COMPLETED transaction. Only administrators may reverse,
// and only while reversals are enabled.
func (s *SettlementServiceImpl) Reverse(ctx context.Context, req ports.ReverseRequest) (*ports.SettlementResult, error) {
	if !req.Actor.IsAdmin() {
		return nil, apperror.ErrForbidden()
	}
	if !s.cfg.AllowReversals {
		return nil, apperror.ErrInvalidTransition(string(domain.TransactionStatusCompleted), req.Status)
	}

	return s.run(ctx, settleInput{
		mode:      domain.SettlementReversal,
		txID:      req.TransactionID,
		status:    req.Status,
		adminNote: req.AdminNote,
	})
}

// run executes one settlement and records its outcome.
func (s *SettlementServiceImpl) run(ctx context.Context, in settleInput) (*ports.SettlementResult, error) {
	start := time.Now()
	res, from, err := s.settle(ctx, in)

	label := ports.SettleResultNoop
	var appErr *apperror.AppError
	switch {
	case err != nil && errors.As(err, &appErr) && appErr.HTTPStatus < 500:
		label = ports.SettleResultRejected
		s.log.Info().
			Str("tx_id", in.txID.String()).
			Str("mode", in.mode.String()).
			Str("code", appErr.Code).
			Msg("settlement rejected")
	case err != nil:
		label = ports.SettleResultError
		s.log.Error().Err(err).
			Str("tx_id", in.txID.String()).
			Str("mode", in.mode.String()).
			Msg("settlement failed")
	case from != res.Transaction.Status:
		label = ports.SettleResultApplied
	}
	if s.metrics != nil {
		s.metrics.ObserveSettlement(in.mode, label, time.Since(start))
	}
	return res, err
}

// settle returns the result and the status the transaction had before.
func (s *SettlementServiceImpl) settle(ctx context.Context, in settleInput) (*ports.SettlementResult, domain.TransactionStatus, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, "", apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock order: transaction row, then wallet row.
	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, in.txID)
	if err != nil {
		return nil, "", apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, "", apperror.ErrNotFound("transaction")
	}
	from := txn.Status

	to, ok := domain.ParseTransactionStatus(in.status)
	if !ok {
		return nil, from, apperror.ErrInvalidTransition(string(from), in.status)
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, txn.WalletID)
	if err != nil {
		return nil, from, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, from, apperror.ErrNotFound("wallet")
	}

	if from == to {
		return &ports.SettlementResult{Transaction: txn}, from, nil
	}
	if err := domain.CheckTransition(in.mode, from, to); err != nil {
		return nil, from, apperror.ErrInvalidTransition(string(from), string(to))
	}

	in.overrides.Apply(txn)

	effect := domain.TransitionEffect(from, to)
	delta, err := txn.BalanceDelta(effect)
	if err != nil {
		return nil, from, apperror.ErrUnsupportedType(string(txn.Type))
	}
	if effect == domain.EffectApply && wallet.Status == domain.WalletStatusClosed {
		return nil, from, apperror.ErrWalletInactive()
	}

	result := &ports.SettlementResult{Transaction: txn}
	if !delta.IsZero() {
		updated, err := s.walletRepo.AdjustBalance(ctx, dbTx, wallet.ID, delta)
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			return nil, from, apperror.ErrInsufficientFunds()
		case errors.Is(err, domain.ErrNotFound):
			return nil, from, apperror.ErrNotFound("wallet")
		case err != nil:
			return nil, from, apperror.InternalError(fmt.Errorf("adjust balance: %w", err))
		}
		wallet = updated
		result.WalletUpdated = true
		result.NewBalance = &updated.Balance
	}

	now := s.now()
	var settledAt *time.Time
	if to.IsSettled() {
		settledAt = &now
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, to, in.adminNote, settledAt); err != nil {
		return nil, from, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if err := s.txRepo.UpdateDetails(ctx, dbTx, txn.ID, in.overrides); err != nil {
		return nil, from, apperror.InternalError(fmt.Errorf("update details: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, from, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	txn.Status = to
	txn.SettledAt = settledAt
	txn.UpdatedAt = now
	if in.adminNote != nil {
		txn.AdminNote = in.adminNote
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("effect", effect.String()).
		Str("delta", delta.String()).
		Msg("transaction settled")

	s.publish(ctx, txn, wallet, from, now)
	return result, from, nil
}

// publish emits the settlement event after commit. Failures are logged and
// never undo the settlement.
func (s *SettlementServiceImpl) publish(ctx context.Context, txn *domain.Transaction, wallet *domain.Wallet, from domain.TransactionStatus, at time.Time) {
	outcome, notify := domain.OutcomeFor(from, txn.Status)
	if !notify || s.publisher == nil {
		return
	}

	event := domain.TransactionSettled{
		TransactionID: txn.ID,
		OwnerID:       txn.OwnerID,
		WalletID:      txn.WalletID,
		Type:          txn.Type,
		FromStatus:    from,
		Status:        txn.Status,
		Outcome:       outcome,
		Amount:        txn.Amount,
		Fee:           txn.Fee,
		Currency:      wallet.Currency,
		AdminNote:     txn.AdminNote,
		OccurredAt:    at,
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish settlement event")
	}
}
