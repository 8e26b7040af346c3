package memory

import (
	"context"
	"slices"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	s *Store
}

// NewUserRepo creates a UserRepo over s.
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{s: s}
}

// Create stores u unless the username is taken.
func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return domain.ErrDuplicate
		}
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

// GetByID returns nil, nil when the user does not exist.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

// GetByUsername returns nil, nil when no user has that name.
func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	s *Store
}

// NewNotificationRepo creates a NotificationRepo over s.
func NewNotificationRepo(s *Store) *NotificationRepo {
	return &NotificationRepo{s: s}
}

func (r *NotificationRepo) Create(_ context.Context, n *domain.WalletNotification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[n.ID]; ok {
		return nil
	}
	c := *n
	r.s.notifications[n.ID] = &c
	return nil
}

func (r *NotificationRepo) List(_ context.Context, ownerID uuid.UUID, unreadOnly bool, limit int) ([]domain.WalletNotification, error) {
	r.s.mu.RLock()
	out := make([]domain.WalletNotification, 0)
	for _, n := range r.s.notifications {
		if n.OwnerID != ownerID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, *n)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.WalletNotification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, ownerID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	if !n.Read {
		now := time.Now().UTC()
		n.Read = true
		n.ReadAt = &now
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, ownerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	now := time.Now().UTC()
	for _, n := range r.s.notifications {
		if n.OwnerID == ownerID && !n.Read {
			n.Read = true
			n.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, ownerID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.OwnerID == ownerID && !n.Read {
			count++
		}
	}
	return count, nil
}

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	s *Store
}

// NewIdempotencyRepo creates an IdempotencyRepo over s.
func NewIdempotencyRepo(s *Store) *IdempotencyRepo {
	return &IdempotencyRepo{s: s}
}

func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, entry *domain.IdempotencyLog) error {
	return r.s.mutate(tx, func() (func(), error) {
		if _, exists := r.s.idempotency[entry.Key]; exists {
			return nil, domain.ErrDuplicate
		}
		c := *entry
		r.s.idempotency[entry.Key] = &c
		return func() { delete(r.s.idempotency, entry.Key) }, nil
	})
}

func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	entry, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	c := *entry
	return &c, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

// NewAuditRepo creates an AuditRepo over s.
func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

// Entries returns a copy of the recorded audit trail.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Clone(r.s.audit)
}
