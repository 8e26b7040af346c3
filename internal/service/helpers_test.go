package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"wallet-ledger/internal/adapter/storage/memory"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var adminActor = domain.Actor{ID: uuid.MustParse("00000000-0000-0000-0000-00000000a001"), Role: domain.RoleAdmin}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// recordingPublisher captures published settlement events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.TransactionSettled
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.TransactionSettled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []domain.TransactionSettled {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.TransactionSettled(nil), p.events...)
}

// ledgerFixture wires the real services over the in-memory store.
type ledgerFixture struct {
	store      *memory.Store
	wallets    *memory.WalletRepo
	txns       *memory.TransactionRepo
	publisher  *recordingPublisher
	settlement *SettlementServiceImpl
	intake     *IntakeServiceImpl
	reporting  *reportingService
}

type fixtureOption func(*IntakeConfig, *SettlementConfig)

func withFees(flat, rate string) fixtureOption {
	return func(ic *IntakeConfig, _ *SettlementConfig) {
		ic.Fees = domain.FeePolicy{Flat: dec(flat), Rate: dec(rate)}
	}
}

func withAutoApprove() fixtureOption {
	return func(ic *IntakeConfig, _ *SettlementConfig) { ic.AutoApproveDeposits = true }
}

func withoutReversals() fixtureOption {
	return func(_ *IntakeConfig, sc *SettlementConfig) { sc.AllowReversals = false }
}

func newLedgerFixture(t *testing.T, opts ...fixtureOption) *ledgerFixture {
	t.Helper()
	ic := IntakeConfig{Currency: "USD", Fees: domain.FeePolicy{Flat: decimal.Zero, Rate: decimal.Zero}}
	sc := SettlementConfig{AllowReversals: true}
	for _, o := range opts {
		o(&ic, &sc)
	}

	store := memory.NewStore()
	f := &ledgerFixture{
		store:     store,
		wallets:   memory.NewWalletRepo(store),
		txns:      memory.NewTransactionRepo(store),
		publisher: &recordingPublisher{},
	}
	f.settlement = NewSettlementService(f.txns, f.wallets, store, f.publisher, nil, sc, newTestLogger())
	f.intake = NewIntakeService(f.txns, f.wallets, memory.NewIdempotencyRepo(store), nil, store, f.settlement, nil, ic, newTestLogger())
	f.reporting = NewReportingService(f.txns, f.wallets, store).(*reportingService)
	return f
}

// fund credits owner with a settled deposit of amount.
func (f *ledgerFixture) fund(t *testing.T, owner uuid.UUID, amount string) {
	t.Helper()
	dep, err := f.intake.CreateDeposit(context.Background(), intakeReq(owner, amount))
	require.NoError(t, err)
	if dep.Status == domain.TransactionStatusCompleted {
		return
	}
	_, err = f.settle(dep.ID, domain.TransactionStatusCompleted)
	require.NoError(t, err)
}

func (f *ledgerFixture) settle(id uuid.UUID, status domain.TransactionStatus) (*ports.SettlementResult, error) {
	return f.settlement.Settle(context.Background(), ports.SettleRequest{
		Actor:         adminActor,
		TransactionID: id,
		Status:        string(status),
	})
}

func (f *ledgerFixture) reverse(id uuid.UUID, status domain.TransactionStatus) (*ports.SettlementResult, error) {
	return f.settlement.Reverse(context.Background(), ports.ReverseRequest{
		Actor:         adminActor,
		TransactionID: id,
		Status:        string(status),
	})
}

func intakeReq(owner uuid.UUID, amount string) ports.IntakeRequest {
	return ports.IntakeRequest{OwnerID: owner, Amount: dec(amount), Description: "test"}
}

func (f *ledgerFixture) balance(t *testing.T, owner uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByOwnerID(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w.Balance
}

// assertConsistent checks that the stored balance equals the net effect of
// every COMPLETED transaction.
func (f *ledgerFixture) assertConsistent(t *testing.T, owner uuid.UUID) {
	t.Helper()
	w, err := f.wallets.GetByOwnerID(context.Background(), owner)
	require.NoError(t, err)
	rec, err := f.reporting.Reconcile(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "stored %s, settled sum %s", rec.StoredBalance, rec.SettledSum)
	assert.False(t, w.Balance.IsNegative())
}
