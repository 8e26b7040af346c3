package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// notificationService implements ports.NotificationService.
type notificationService struct {
	repo   ports.NotificationRepository
	pusher ports.NotificationPusher
	log    zerolog.Logger
}

// NewNotificationService creates a new notification service. pusher may be
// nil, in which case notifications are only stored.
func NewNotificationService(repo ports.NotificationRepository, pusher ports.NotificationPusher, log zerolog.Logger) ports.NotificationService {
	return &notificationService{repo: repo, pusher: pusher, log: log}
}

// HandleSettled renders, stores and pushes the notification for event. It
// is an event handler, so failures are logged rather than returned. Every
// instance subscribed to the bus runs it; the store keeps the first copy
// and each instance pushes to its own live connections.
func (s *notificationService) HandleSettled(ctx context.Context, event domain.TransactionSettled) {
	n := RenderNotification(event)

	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", event.TransactionID.String()).
			Str("owner_id", event.OwnerID.String()).
			Msg("failed to store notification")
		return
	}

	delivered := 0
	if s.pusher != nil {
		delivered = s.pusher.Push(event.OwnerID, n)
	}
	s.log.Debug().
		Str("tx_id", event.TransactionID.String()).
		Str("outcome", string(event.Outcome)).
		Int("live_connections", delivered).
		Msg("notification delivered")
}

func (s *notificationService) List(ctx context.Context, ownerID uuid.UUID, unreadOnly bool, limit int) ([]domain.WalletNotification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	limit = min(limit, maxNotificationLimit)

	list, err := s.repo.List(ctx, ownerID, unreadOnly, limit)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, ownerID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperror.ErrNotFound("notification")
		}
		return apperror.InternalError(err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, ownerID)
	if err != nil {
		return 0, apperror.InternalError(err)
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, ownerID)
	if err != nil {
		return 0, apperror.InternalError(err)
	}
	return n, nil
}

// RenderNotification turns a settlement event into the owner facing message.
func RenderNotification(event domain.TransactionSettled) *domain.WalletNotification {
	kind := strings.ToLower(string(event.Type))
	if kind == "" {
		kind = "transaction"
	}
	amount := event.Amount.StringFixed(domain.MoneyPlaces) + " " + event.Currency

	var title, verb string
	switch event.Outcome {
	case domain.OutcomeApproved:
		verb = "approved"
	case domain.OutcomeRejected:
		verb = "rejected"
	case domain.OutcomeReversed:
		verb = "reversed"
	default:
		verb = strings.ToLower(string(event.Status))
	}
	title = strings.ToUpper(kind[:1]) + kind[1:] + " " + verb

	msg := fmt.Sprintf("Your %s of %s has been %s.", kind, amount, verb)
	if event.Outcome == domain.OutcomeReversed && event.Type == domain.TransactionTypeDeposit {
		msg += " The amount has been removed from your balance."
	}
	if event.Outcome == domain.OutcomeReversed && event.Type == domain.TransactionTypeWithdrawal {
		msg += " The amount has been returned to your balance."
	}
	if event.AdminNote != nil && *event.AdminNote != "" {
		msg += " Note: " + *event.AdminNote
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &domain.WalletNotification{
		ID:            event.NotificationID(),
		OwnerID:       event.OwnerID,
		TransactionID: event.TransactionID,
		Outcome:       event.Outcome,
		Title:         title,
		Message:       msg,
		CreatedAt:     createdAt,
	}
}
