package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ledgerTxOptions is used for every settlement and intake unit of work.
// Row locks taken with FOR UPDATE serialize writers on the same wallet.
var ledgerTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

// Transactor implements ports.DBTransactor.
type Transactor struct {
	pool Pool
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a read-committed, read-write transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, ledgerTxOptions)
	if err != nil {
		return nil, fmt.Errorf("begin ledger transaction: %w", err)
	}
	return tx, nil
}

var errSchemaMissing = errors.New("ledger schema not initialized")

// HealthCheck implements ports.HealthChecker. Beyond connectivity it
// confirms the ledger table exists, so a fresh database reports unhealthy
// until InitSchema has run.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var present bool
	err := h.pool.QueryRow(ctx, `SELECT to_regclass('wallet_transactions') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("probe postgres: %w", err)
	}
	if !present {
		return errSchemaMissing
	}
	return nil
}

func (h *HealthCheck) Name() string { return "postgres" }
