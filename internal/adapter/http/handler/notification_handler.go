package handler

import (
	"net/http"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationStream attaches a live connection for an owner.
type NotificationStream interface {
	Serve(w http.ResponseWriter, r *http.Request, owner uuid.UUID) error
}

// NotificationHandler serves the caller's notifications.
type NotificationHandler struct {
	notificationSvc ports.NotificationService
	stream          NotificationStream
	log             zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationSvc ports.NotificationService, stream NotificationStream, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc, stream: stream, log: log}
}

// List handles GET /api/v1/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var q dto.NotificationListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	items, err := h.notificationSvc.List(c.Request.Context(), actor.ID, q.Unread, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.notificationSvc.UnreadCount(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NotificationListResponse{Items: items, Unread: unread})
}

// MarkRead handles POST /api/v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), actor.ID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "read": true})
}

// MarkAllRead handles POST /api/v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.MarkAllRead(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MarkAllReadResponse{Marked: n})
}

// Stream handles GET /api/v1/notifications/ws.
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	// The upgrader writes its own error response.
	if err := h.stream.Serve(c.Writer, c.Request, actor.ID); err != nil {
		h.log.Debug().Err(err).Str("owner_id", actor.ID.String()).Msg("websocket upgrade failed")
	}
}
