package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource it created when the
// route carries no :id.
const CtxAuditResourceID = "audit_resource_id"

// AuditLog creates an audit middleware that logs successful write operations.
// Actions are looked up by route template, so it must be mounted with
// r.Use before the routes are matched.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if actor, ok := ActorFrom(c); ok {
			actorID = &actor.ID
		}

		resourceID := c.Param("id")
		if resourceID == "" {
			resourceID = c.GetString(CtxAuditResourceID)
		}

		details, _ := json.Marshal(map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapPathToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/auth/register" && method == http.MethodPost:
		return domain.AuditActionRegister, "user"
	case route == "/api/v1/auth/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "session"
	case route == "/api/v1/wallet/deposits" && method == http.MethodPost:
		return domain.AuditActionCreateDeposit, "transaction"
	case route == "/api/v1/wallet/withdrawals" && method == http.MethodPost:
		return domain.AuditActionCreateWithdrawal, "transaction"
	case route == "/api/v1/wallet/transactions" && method == http.MethodPost:
		return domain.AuditActionCreateTx, "transaction"
	case route == "/api/v1/admin/transactions/:id/status" && method == http.MethodPatch:
		return domain.AuditActionSettle, "transaction"
	case route == "/api/v1/admin/transactions/:id/reverse" && method == http.MethodPost:
		return domain.AuditActionReverse, "transaction"
	case route == "/api/v1/admin/wallets/:id/status" && method == http.MethodPatch:
		return domain.AuditActionWalletStatus, "wallet"
	}
	return "", ""
}
