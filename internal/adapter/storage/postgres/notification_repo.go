package postgres

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create stores a rendered notification. A notification whose id is
// already stored is left untouched, read flag included.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.WalletNotification) error {
	query := `INSERT INTO notifications (id, owner_id, transaction_id, outcome, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.OwnerID, n.TransactionID, n.Outcome, n.Title, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the owner's most recent notifications.
func (r *NotificationRepo) List(ctx context.Context, ownerID uuid.UUID, unreadOnly bool, limit int) ([]domain.WalletNotification, error) {
	query := `SELECT id, owner_id, transaction_id, outcome, title, message, read, created_at, read_at
		FROM notifications WHERE owner_id = $1 AND ($2 = false OR read = false)
		ORDER BY created_at DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, ownerID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WalletNotification, 0)
	for rows.Next() {
		var n domain.WalletNotification
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.TransactionID, &n.Outcome, &n.Title, &n.Message, &n.Read, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return out, nil
}

// MarkRead flags one of the owner's notifications as read. Marking an
// already read notification is a no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = true, read_at = NOW() WHERE id = $1 AND owner_id = $2 AND read = false`, id, ownerID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Already read is fine; only a foreign or missing id is an error.
	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND owner_id = $2)`, id, ownerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check notification: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the owner and returns how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = true, read_at = NOW() WHERE owner_id = $1 AND read = false`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnread returns the number of unread notifications for the owner.
func (r *NotificationRepo) CountUnread(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE owner_id = $1 AND read = false`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
