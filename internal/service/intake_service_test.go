package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestIntake_RecordsPendingDeposit(t *testing.T) {
	f := newLedgerFixture(t)
	owner := uuid.New()
	loc := "Hanoi"
	date := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	req := intakeReq(owner, "150.75")
	req.Location = &loc
	req.Date = &date
	dep, err := f.intake.CreateDeposit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeDeposit, dep.Type)
	assert.Equal(t, domain.TransactionStatusPending, dep.Status)
	assert.True(t, dep.Fee.IsZero())
	assert.True(t, strings.HasPrefix(dep.Reference, "WTX-"))
	assert.Equal(t, date, dep.Date)
	assert.Nil(t, dep.SettledAt)

	stored, err := f.txns.GetByID(context.Background(), dep.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Hanoi", *stored.Location)
	assert.True(t, f.balance(t, owner).IsZero(), "wallet is opened with a zero balance")
}

func TestIntake_ValidatesAmount(t *testing.T) {
	f := newLedgerFixture(t)
	for _, amount := range []string{"0", "-10", "1.005"} {
		t.Run(amount, func(t *testing.T) {
			_, err := f.intake.CreateDeposit(context.Background(), intakeReq(uuid.New(), amount))
			assertAppError(t, err, "PAY_002")
		})
	}
}

func TestIntake_CreateByType(t *testing.T) {
	f := newLedgerFixture(t)
	owner := uuid.New()

	txn, err := f.intake.Create(context.Background(), "DEPOSIT", intakeReq(owner, "5"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDeposit, txn.Type)

	for _, typ := range []string{"TRANSFER", "FEE", "REFUND"} {
		_, err := f.intake.Create(context.Background(), typ, intakeReq(owner, "5"))
		assertAppError(t, err, "LED_003")
	}

	_, err = f.intake.Create(context.Background(), "BONUS", intakeReq(owner, "5"))
	assertAppError(t, err, "PAY_002")
	_, err = f.intake.Create(context.Background(), "deposit", intakeReq(owner, "5"))
	assertAppError(t, err, "PAY_002")
}

func TestIntake_WithdrawalFeeAndPrecheck(t *testing.T) {
	f := newLedgerFixture(t, withFees("0.50", "0.01"))
	owner := uuid.New()
	f.fund(t, owner, "101.50")

	wd, err := f.intake.CreateWithdrawal(context.Background(), intakeReq(owner, "100"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", wd.Fee.String())
	assert.Equal(t, "101.5", wd.Total().String())

	_, err = f.intake.CreateWithdrawal(context.Background(), intakeReq(owner, "100.01"))
	assertAppError(t, err, "PAY_001")
	assert.Equal(t, "101.5", f.balance(t, owner).String(), "intake never moves money")
}

func TestIntake_IdempotentReplay(t *testing.T) {
	f := newLedgerFixture(t)
	owner := uuid.New()
	req := intakeReq(owner, "40")
	req.IdempotencyKey = "DEP-001"

	first, err := f.intake.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
	_, err = f.settle(first.ID, domain.TransactionStatusCompleted)
	require.NoError(t, err)

	replay, err := f.intake.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, domain.TransactionStatusCompleted, replay.Status, "replay reports the current state")

	list, total, err := f.reporting.ListTransactions(context.Background(), ports.TransactionListParams{OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	// Keys are scoped per owner.
	other := uuid.New()
	req.OwnerID = other
	fresh, err := f.intake.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestIntake_AutoApproveDeposits(t *testing.T) {
	f := newLedgerFixture(t, withAutoApprove())
	owner := uuid.New()

	dep, err := f.intake.CreateDeposit(context.Background(), intakeReq(owner, "60"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, dep.Status)
	assert.NotNil(t, dep.SettledAt)
	assert.Equal(t, "60", f.balance(t, owner).String())

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.OutcomeApproved, events[0].Outcome)

	wd, err := f.intake.CreateWithdrawal(context.Background(), intakeReq(owner, "10"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, wd.Status, "withdrawals always wait for review")
	f.assertConsistent(t, owner)
}

func TestIntake_InactiveWallet(t *testing.T) {
	f := newLedgerFixture(t)
	owner := uuid.New()
	f.fund(t, owner, "10")

	wallet, _ := f.wallets.GetByOwnerID(context.Background(), owner)
	require.NoError(t, f.wallets.UpdateStatus(context.Background(), wallet.ID, domain.WalletStatusSuspended))

	_, err := f.intake.CreateDeposit(context.Background(), intakeReq(owner, "5"))
	assertAppError(t, err, "LED_002")
	_, err = f.intake.CreateWithdrawal(context.Background(), intakeReq(owner, "5"))
	assertAppError(t, err, "LED_002")
}

func TestIntake_ReferencesAreUnique(t *testing.T) {
	f := newLedgerFixture(t)
	owner := uuid.New()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		dep, err := f.intake.CreateDeposit(context.Background(), intakeReq(owner, "1"))
		require.NoError(t, err)
		assert.False(t, seen[dep.Reference], "duplicate reference %s", dep.Reference)
		seen[dep.Reference] = true
	}
}

// ==================== Unit tests (mocked ports) ====================

type intakeTestDeps struct {
	svc        *IntakeServiceImpl
	txRepo     *mocks.MockTransactionRepository
	walletRepo *mocks.MockWalletRepository
	idempRepo  *mocks.MockIdempotencyRepository
	idempCache *mocks.MockIdempotencyCache
	transactor *mocks.MockDBTransactor
	settlement *mocks.MockSettlementService
	metrics    *mocks.MockSettlementMetrics
	tx         *mockTx
}

func setupIntakeService(t *testing.T, cfg IntakeConfig) *intakeTestDeps {
	ctrl := gomock.NewController(t)
	d := &intakeTestDeps{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		idempRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		settlement: mocks.NewMockSettlementService(ctrl),
		metrics:    mocks.NewMockSettlementMetrics(ctrl),
		tx:         &mockTx{},
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	d.svc = NewIntakeService(d.txRepo, d.walletRepo, d.idempRepo, d.idempCache, d.transactor,
		d.settlement, d.metrics, cfg, newTestLogger())
	return d
}

func TestIntakeService_CacheHitSkipsDatabase(t *testing.T) {
	d := setupIntakeService(t, IntakeConfig{})
	owner := uuid.New()
	recorded := &domain.Transaction{ID: uuid.New(), OwnerID: owner, Status: domain.TransactionStatusPending}
	body, _ := json.Marshal(recorded)
	current := *recorded
	current.Status = domain.TransactionStatusCompleted

	key := domain.BuildIdempotencyKey(owner, "K-1")
	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(body, nil)
	d.txRepo.EXPECT().GetByID(gomock.Any(), recorded.ID).Return(&current, nil)

	req := intakeReq(owner, "10")
	req.IdempotencyKey = "K-1"
	got, err := d.svc.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, got.Status)
}

func TestIntakeService_CacheErrorFallsBackToLog(t *testing.T) {
	d := setupIntakeService(t, IntakeConfig{})
	owner := uuid.New()
	recorded := &domain.Transaction{ID: uuid.New(), OwnerID: owner}
	body, _ := json.Marshal(recorded)
	key := domain.BuildIdempotencyKey(owner, "K-2")

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, errors.New("redis down"))
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(&domain.IdempotencyLog{Key: key, ResponseJSON: body}, nil)
	d.txRepo.EXPECT().GetByID(gomock.Any(), recorded.ID).Return(nil, nil)

	req := intakeReq(owner, "10")
	req.IdempotencyKey = "K-2"
	got, err := d.svc.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, recorded.ID, got.ID)
}

func TestIntakeService_NewKeyIsRecordedAndCached(t *testing.T) {
	d := setupIntakeService(t, IntakeConfig{})
	owner := uuid.New()
	wallet := activeWallet("0")
	key := domain.BuildIdempotencyKey(owner, "K-3")

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.walletRepo.EXPECT().GetOrCreate(gomock.Any(), owner, "USD").Return(wallet, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.txRepo.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.IdempotencyLog) error {
			assert.Equal(t, key, entry.Key)
			assert.NotEmpty(t, entry.ResponseJSON)
			return nil
		})
	d.idempCache.EXPECT().Set(gomock.Any(), key, gomock.Any(), idempotencyTTL).Return(nil)
	d.metrics.EXPECT().ObserveIntake(domain.TransactionTypeDeposit)

	req := intakeReq(owner, "10")
	req.IdempotencyKey = "K-3"
	got, err := d.svc.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, got.WalletID)
	assert.True(t, d.tx.committed)
}

func TestIntakeService_ConcurrentDuplicateKey(t *testing.T) {
	d := setupIntakeService(t, IntakeConfig{})
	owner := uuid.New()
	key := domain.BuildIdempotencyKey(owner, "K-4")

	d.idempCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(gomock.Any(), key).Return(nil, nil)
	d.walletRepo.EXPECT().GetOrCreate(gomock.Any(), owner, "USD").Return(activeWallet("0"), nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.txRepo.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(domain.ErrDuplicate)

	req := intakeReq(owner, "10")
	req.IdempotencyKey = "K-4"
	_, err := d.svc.CreateDeposit(context.Background(), req)
	assertAppError(t, err, "PAY_003")
	assert.False(t, d.tx.committed)
	assert.True(t, d.tx.rolledBack)
}

func TestIntakeService_AutoApproveFailureLeavesPending(t *testing.T) {
	d := setupIntakeService(t, IntakeConfig{AutoApproveDeposits: true})
	owner := uuid.New()

	d.walletRepo.EXPECT().GetOrCreate(gomock.Any(), owner, "USD").Return(activeWallet("0"), nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.txRepo.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.metrics.EXPECT().ObserveIntake(domain.TransactionTypeDeposit)
	d.settlement.EXPECT().Settle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.SettleRequest) (*ports.SettlementResult, error) {
			assert.Equal(t, domain.SystemActor, req.Actor)
			assert.Equal(t, "COMPLETED", req.Status)
			return nil, errors.New("lock timeout")
		})

	got, err := d.svc.CreateDeposit(context.Background(), intakeReq(owner, "10"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, got.Status)
}

func TestIntake_CurrencyMustMatchWallet(t *testing.T) {
	f := newLedgerFixture(t)
	owner := uuid.New()

	req := intakeReq(owner, "5")
	req.Currency = "EUR"
	_, err := f.intake.CreateDeposit(context.Background(), req)
	assertAppError(t, err, "PAY_002")

	req.Currency = "USD"
	_, err = f.intake.CreateDeposit(context.Background(), req)
	require.NoError(t, err)
}
