package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, wallet_id, owner_id, type, status, amount::text, fee::text, reference,
		description, location, bank_account_id, admin_note, date, created_at, updated_at, settled_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, owner_id, type, status, amount, fee, reference,
		description, location, bank_account_id, admin_note, date, created_at, updated_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.OwnerID, t.Type, t.Status,
		t.Amount.String(), t.Fee.String(), t.Reference,
		t.Description, t.Location, t.BankAccountID, t.AdminNote,
		t.Date, t.CreatedAt, t.UpdatedAt, t.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a transaction by UUID and locks the row.
// This MUST be called within a transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1 FOR UPDATE`

	return r.scanTransaction(tx.QueryRow(ctx, query, id))
}

// UpdateStatus updates status, admin note and settled timestamp within a database transaction.
// A nil adminNote keeps the stored note.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, adminNote *string, settledAt *time.Time) error {
	query := `UPDATE wallet_transactions
		SET status = $1, admin_note = COALESCE($2, admin_note), settled_at = $3, updated_at = NOW()
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, status, adminNote, settledAt, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateDetails persists administrator edits. Only overridden columns are written.
func (r *TransactionRepo) UpdateDetails(ctx context.Context, tx pgx.Tx, id uuid.UUID, o domain.Overrides) error {
	if o.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	argIdx := 1

	if o.Amount != nil {
		sets = append(sets, fmt.Sprintf("amount = $%d::numeric", argIdx))
		args = append(args, o.Amount.String())
		argIdx++
	}
	if o.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *o.Description)
		argIdx++
	}
	if o.Location != nil {
		sets = append(sets, fmt.Sprintf("location = $%d", argIdx))
		args = append(args, *o.Location)
		argIdx++
	}
	if o.Date != nil {
		sets = append(sets, fmt.Sprintf("date = $%d", argIdx))
		args = append(args, *o.Date)
		argIdx++
	}

	query := fmt.Sprintf(`UPDATE wallet_transactions SET %s, updated_at = NOW() WHERE id = $%d`,
		strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List fetches transactions with filtering and pagination, newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	add := func(cond string, arg any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, arg)
		argIdx++
	}

	if params.WalletID != nil {
		add("wallet_id = $%d", *params.WalletID)
	}
	if params.OwnerID != nil {
		add("owner_id = $%d", *params.OwnerID)
	}
	if params.Status != nil {
		add("status = $%d", *params.Status)
	}
	if params.Type != nil {
		add("type = $%d", *params.Type)
	}
	if params.From != nil {
		add("date >= $%d", *params.From)
	}
	if params.To != nil {
		add("date <= $%d", *params.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM wallet_transactions %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM wallet_transactions %s
		ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`, transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, params.PageSize)
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// GetStats retrieves aggregated transaction statistics for a wallet.
func (r *TransactionRepo) GetStats(ctx context.Context, walletID uuid.UUID) (*ports.TransactionStats, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		COUNT(*) FILTER (WHERE status = 'PROCESSING') AS processing,
		COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
		COUNT(*) FILTER (WHERE status = 'FAILED') AS failed,
		COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled,
		COALESCE(SUM(amount) FILTER (WHERE type = 'DEPOSIT' AND status = 'COMPLETED'), 0)::text AS deposited,
		COALESCE(SUM(amount + fee) FILTER (WHERE type = 'WITHDRAWAL' AND status = 'COMPLETED'), 0)::text AS withdrawn
		FROM wallet_transactions WHERE wallet_id = $1`

	stats := &ports.TransactionStats{}
	var deposited, withdrawn string
	err := r.pool.QueryRow(ctx, query, walletID).Scan(
		&stats.TotalTransactions, &stats.Pending, &stats.Processing, &stats.Completed,
		&stats.Failed, &stats.Cancelled, &deposited, &withdrawn,
	)
	if err != nil {
		return nil, fmt.Errorf("get transaction stats: %w", err)
	}
	if stats.TotalDeposited, err = decimal.NewFromString(deposited); err != nil {
		return nil, fmt.Errorf("parse deposited sum: %w", err)
	}
	if stats.TotalWithdrawn, err = decimal.NewFromString(withdrawn); err != nil {
		return nil, fmt.Errorf("parse withdrawn sum: %w", err)
	}
	return stats, nil
}

// SumSettledEffects returns the net balance effect of all COMPLETED transactions on a wallet.
func (r *TransactionRepo) SumSettledEffects(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(CASE type
			WHEN 'DEPOSIT' THEN amount
			WHEN 'WITHDRAWAL' THEN -(amount + fee)
			ELSE 0 END), 0)::text
		FROM wallet_transactions WHERE wallet_id = $1 AND status = 'COMPLETED'`

	var sum string
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum settled effects: %w", err)
	}
	d, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse settled sum: %w", err)
	}
	return d, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var amount, fee string
	err := row.Scan(
		&t.ID, &t.WalletID, &t.OwnerID, &t.Type, &t.Status, &amount, &fee, &t.Reference,
		&t.Description, &t.Location, &t.BankAccountID, &t.AdminNote,
		&t.Date, &t.CreatedAt, &t.UpdatedAt, &t.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse fee %q: %w", fee, err)
	}
	return t, nil
}
