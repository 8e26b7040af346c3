package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(ownerID, walletID uuid.UUID) *domain.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		OwnerID:       ownerID,
		Type:          domain.TransactionTypeWithdrawal,
		Status:        domain.TransactionStatusPending,
		Amount:        decimal.RequireFromString("50.00"),
		Fee:           decimal.RequireFromString("1.50"),
		Reference:     "WTX-01J9Z3K7Q8D4M2N6P0R5S7T9V1",
		Description:   "rent",
		Location:      strPtr("Berlin"),
		BankAccountID: strPtr("DE89-3704"),
		AdminNote:     nil,
		Date:          now,
		CreatedAt:     now,
		UpdatedAt:     now,
		SettledAt:     nil,
	}
}

func txColumnNames() []string {
	return []string{"id", "wallet_id", "owner_id", "type", "status", "amount", "fee", "reference",
		"description", "location", "bank_account_id", "admin_note", "date", "created_at", "updated_at", "settled_at"}
}

func txRow(rows *pgxmock.Rows, t *domain.Transaction) *pgxmock.Rows {
	return rows.AddRow(
		t.ID, t.WalletID, t.OwnerID, t.Type, t.Status, t.Amount.String(), t.Fee.String(), t.Reference,
		t.Description, t.Location, t.BankAccountID, t.AdminNote,
		t.Date, t.CreatedAt, t.UpdatedAt, t.SettledAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs(
			txn.ID, txn.WalletID, txn.OwnerID, txn.Type, txn.Status,
			"50", "1.5", txn.Reference,
			txn.Description, txn.Location, txn.BankAccountID, txn.AdminNote,
			txn.Date, txn.CreatedAt, txn.UpdatedAt, txn.SettledAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New(), uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(txRow(pgxmock.NewRows(txColumnNames()), txn))

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, domain.TransactionTypeWithdrawal, result.Type)
	assert.True(t, txn.Amount.Equal(result.Amount))
	assert.True(t, txn.Fee.Equal(result.Fee))
	assert.Equal(t, "Berlin", *result.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(txColumnNames()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE id .+ FOR UPDATE").
		WithArgs(txn.ID).
		WillReturnRows(txRow(pgxmock.NewRows(txColumnNames()), txn))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()
	note := strPtr("approved after review")
	settledAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_transactions\\s+SET status").
		WithArgs(domain.TransactionStatusCompleted, note, &settledAt, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), dbTx, id, domain.TransactionStatusCompleted, note, &settledAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_transactions").
		WithArgs(domain.TransactionStatusFailed, (*string)(nil), (*time.Time)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), dbTx, id, domain.TransactionStatusFailed, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateDetails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()
	amount := decimal.RequireFromString("75.25")
	desc := "corrected amount"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallet_transactions SET amount = \\$1::numeric, description = \\$2, updated_at = NOW\\(\\) WHERE id = \\$3").
		WithArgs("75.25", desc, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateDetails(context.Background(), dbTx, id, domain.Overrides{Amount: &amount, Description: &desc})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateDetails_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	mock.ExpectBegin()

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateDetails(context.Background(), dbTx, uuid.New(), domain.Overrides{})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	ownerID := uuid.New()
	walletID := uuid.New()
	first := newTestTransaction(ownerID, walletID)
	second := newTestTransaction(ownerID, walletID)
	status := domain.TransactionStatusPending

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM wallet_transactions WHERE owner_id = \\$1 AND status = \\$2").
		WithArgs(ownerID, status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	rows := pgxmock.NewRows(txColumnNames())
	txRow(rows, first)
	txRow(rows, second)
	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE owner_id = \\$1 AND status = \\$2\\s+ORDER BY date DESC, created_at DESC LIMIT \\$3 OFFSET \\$4").
		WithArgs(ownerID, status, 2, 2).
		WillReturnRows(rows)

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		OwnerID:  &ownerID,
		Status:   &status,
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, txns, 2)
	assert.Equal(t, first.ID, txns[0].ID)
	assert.Equal(t, second.ID, txns[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE wallet_id").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(
			[]string{"total", "pending", "processing", "completed", "failed", "cancelled", "deposited", "withdrawn"},
		).AddRow(int64(10), int64(2), int64(1), int64(5), int64(1), int64(1), "500.00", "101.50"))

	stats, err := repo.GetStats(context.Background(), walletID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats.TotalTransactions)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(5), stats.Completed)
	assert.Equal(t, "500", stats.TotalDeposited.String())
	assert.Equal(t, "101.5", stats.TotalWithdrawn.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumSettledEffects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(CASE type").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("398.50"))

	sum, err := repo.SumSettledEffects(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, "398.5", sum.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
