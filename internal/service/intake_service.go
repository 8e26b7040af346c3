package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// IntakeConfig holds the intake policy.
type IntakeConfig struct {
	Currency            string
	AutoApproveDeposits bool
	Fees                domain.FeePolicy
}

// IntakeServiceImpl implements ports.IntakeService.
type IntakeServiceImpl struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	settlement ports.SettlementService
	metrics    ports.SettlementMetrics
	refs       *ReferenceGenerator
	cfg        IntakeConfig
	log        zerolog.Logger
}

// NewIntakeService creates a new IntakeServiceImpl. idempCache and metrics
// may be nil.
func NewIntakeService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	settlement ports.SettlementService,
	metrics ports.SettlementMetrics,
	cfg IntakeConfig,
	log zerolog.Logger,
) *IntakeServiceImpl {
	return &IntakeServiceImpl{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		settlement: settlement,
		metrics:    metrics,
		refs:       NewReferenceGenerator(),
		cfg:        cfg,
		log:        log,
	}
}

// CreateDeposit records a PENDING deposit, settling it right away when
// deposits are auto-approved.
func (s *IntakeServiceImpl) CreateDeposit(ctx context.Context, req ports.IntakeRequest) (*domain.Transaction, error) {
	return s.create(ctx, domain.TransactionTypeDeposit, req)
}

// CreateWithdrawal records a PENDING withdrawal after checking that the
// balance covers amount plus fee. Nothing is held; settlement re-checks.
func (s *IntakeServiceImpl) CreateWithdrawal(ctx context.Context, req ports.IntakeRequest) (*domain.Transaction, error) {
	return s.create(ctx, domain.TransactionTypeWithdrawal, req)
}

// Create dispatches on the client supplied type. Only deposits and
// withdrawals can be created this way.
func (s *IntakeServiceImpl) Create(ctx context.Context, txType string, req ports.IntakeRequest) (*domain.Transaction, error) {
	t, ok := domain.ParseTransactionType(txType)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction type %q", txType))
	}
	switch t {
	case domain.TransactionTypeDeposit, domain.TransactionTypeWithdrawal:
		return s.create(ctx, t, req)
	case domain.TransactionTypeTransfer, domain.TransactionTypeFee, domain.TransactionTypeRefund:
		return nil, apperror.ErrUnsupportedType(string(t))
	}
	return nil, apperror.ErrUnsupportedType(string(t))
}

func (s *IntakeServiceImpl) create(ctx context.Context, txType domain.TransactionType, req ports.IntakeRequest) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.OwnerID, req.IdempotencyKey)
		replay, err := s.lookupReplay(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, req.OwnerID, s.cfg.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletInactive()
	}
	if req.Currency != "" && req.Currency != wallet.Currency {
		return nil, apperror.Validation(fmt.Sprintf("currency %s does not match wallet currency %s", req.Currency, wallet.Currency))
	}

	fee := decimal.Zero
	if txType == domain.TransactionTypeWithdrawal {
		fee = s.cfg.Fees.WithdrawalFee(req.Amount)
		if wallet.Balance.LessThan(req.Amount.Add(fee)) {
			return nil, apperror.ErrInsufficientFunds()
		}
	}

	now := time.Now().UTC()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		OwnerID:       req.OwnerID,
		Type:          txType,
		Status:        domain.TransactionStatusPending,
		Amount:        req.Amount,
		Fee:           fee,
		Reference:     s.refs.Next(now),
		Description:   req.Description,
		Location:      req.Location,
		BankAccountID: req.BankAccountID,
		Date:          date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(txn)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		entry := &domain.IdempotencyLog{Key: idempKey, TransactionID: txn.ID, ResponseJSON: respJSON, CreatedAt: now}
		if err := s.idempRepo.Create(ctx, dbTx, entry); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return nil, apperror.ErrDuplicateTransaction()
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" && s.idempCache != nil {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveIntake(txType)
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("owner_id", req.OwnerID.String()).
		Str("type", string(txType)).
		Str("amount", txn.Amount.String()).
		Str("fee", fee.String()).
		Msg("transaction recorded")

	if txType == domain.TransactionTypeDeposit && s.cfg.AutoApproveDeposits {
		return s.autoApprove(ctx, txn), nil
	}
	return txn, nil
}

// autoApprove settles a fresh deposit as the system actor. A failure leaves
// the deposit PENDING for manual review.
func (s *IntakeServiceImpl) autoApprove(ctx context.Context, txn *domain.Transaction) *domain.Transaction {
	res, err := s.settlement.Settle(ctx, ports.SettleRequest{
		Actor:         domain.SystemActor,
		TransactionID: txn.ID,
		Status:        string(domain.TransactionStatusCompleted),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("auto-approval failed, deposit left pending")
		return txn
	}
	return res.Transaction
}

// lookupReplay returns the transaction recorded under key, or nil if the
// key is new. The cache is consulted first, then the database log. The
// stored body only identifies the transaction; its current state is re-read.
func (s *IntakeServiceImpl) lookupReplay(ctx context.Context, key string) (*domain.Transaction, error) {
	var body []byte
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		body = cached
	}
	if body == nil {
		entry, err := s.idempRepo.Get(ctx, key)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if entry == nil {
			return nil, nil
		}
		body = entry.ResponseJSON
	}

	recorded := &domain.Transaction{}
	if err := json.Unmarshal(body, recorded); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached tx: %w", err))
	}
	current, err := s.txRepo.GetByID(ctx, recorded.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reload replayed tx: %w", err))
	}
	if current == nil {
		return recorded, nil
	}
	return current, nil
}
