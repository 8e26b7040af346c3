// Package memory is a process-local storage backend implementing the same
// ports as the postgres adapter. Write transactions are serialized store-wide
// and rolled back through an undo journal.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errUnsupported = errors.New("operation not supported by the memory store")

// Store holds all ledger state in maps guarded by mu. sem admits one write
// transaction at a time.
type Store struct {
	sem chan struct{}
	mu  sync.RWMutex

	users         map[uuid.UUID]*domain.User
	wallets       map[uuid.UUID]*domain.Wallet
	walletByOwner map[uuid.UUID]uuid.UUID
	txns          map[uuid.UUID]*domain.Transaction
	notifications map[uuid.UUID]*domain.WalletNotification
	idempotency   map[string]*domain.IdempotencyLog
	audit         []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:           make(chan struct{}, 1),
		users:         make(map[uuid.UUID]*domain.User),
		wallets:       make(map[uuid.UUID]*domain.Wallet),
		walletByOwner: make(map[uuid.UUID]uuid.UUID),
		txns:          make(map[uuid.UUID]*domain.Transaction),
		notifications: make(map[uuid.UUID]*domain.WalletNotification),
		idempotency:   make(map[string]*domain.IdempotencyLog),
	}
}

// Begin starts a write transaction, waiting for any open one to finish.
// It implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &memTx{store: s}, nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for memory store: %w", ctx.Err())
	}
}

func (s *Store) release() {
	<-s.sem
}

// mutate applies fn under the data lock and journals its undo on tx.
func (s *Store) mutate(tx pgx.Tx, fn func() (undo func(), err error)) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return fmt.Errorf("memory store: foreign transaction %T", tx)
	}
	if mt.done {
		return pgx.ErrTxClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	undo, err := fn()
	if err != nil {
		return err
	}
	if undo != nil {
		mt.undo = append(mt.undo, undo)
	}
	return nil
}

// memTx implements pgx.Tx for the memory store. Only Commit and Rollback are
// meaningful; SQL entry points report errUnsupported.
type memTx struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.store.release()
	return nil
}

// Rollback replays the undo journal newest first. Calling it after Commit
// is a no-op returning pgx.ErrTxClosed, matching pgx.
func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.done = true
	t.undo = nil
	t.store.release()
	return nil
}

func (t *memTx) Begin(_ context.Context) (pgx.Tx, error) { return nil, errUnsupported }
func (t *memTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}
func (t *memTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *memTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}
func (t *memTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errUnsupported
}
func (t *memTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errUnsupported
}
func (t *memTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return errRow{} }
func (t *memTx) Conn() *pgx.Conn                                      { return nil }

type errRow struct{}

func (errRow) Scan(_ ...any) error { return errUnsupported }

// HealthCheck implements ports.HealthChecker for the memory store.
type HealthCheck struct{}

// Ping always succeeds.
func (HealthCheck) Ping(_ context.Context) error { return nil }

// Name returns the dependency name.
func (HealthCheck) Name() string { return "memory" }

// write runs fn outside any transaction while holding both the writer slot
// and the data lock, so it never interleaves with an open transaction's journal.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
