package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 64

	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100

	auditResourceKey = middleware.CtxAuditResourceID
)

// mustActor returns the authenticated caller or writes AUTH_003.
func mustActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return domain.Actor{}, false
	}
	return actor, true
}

// bindJSON decodes and sanitizes the request body, writing PAY_002 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(dst)
	return true
}

// pathUUID parses a UUID path parameter or writes PAY_002.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// listParams binds the query string into normalized list parameters.
func listParams(c *gin.Context) (ports.TransactionListParams, bool) {
	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return ports.TransactionListParams{}, false
	}

	params := ports.TransactionListParams{
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if params.Page < 1 {
		params.Page = defaultPage
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	if q.Status != "" {
		status := domain.TransactionStatus(q.Status)
		if !status.IsValid() {
			response.Error(c, apperror.Validation("unknown status "+q.Status))
			return ports.TransactionListParams{}, false
		}
		params.Status = &status
	}
	if q.Type != "" {
		txType, ok := domain.ParseTransactionType(q.Type)
		if !ok {
			response.Error(c, apperror.Validation("unknown type "+q.Type))
			return ports.TransactionListParams{}, false
		}
		params.Type = &txType
	}
	if q.OwnerID != "" {
		id := uuid.MustParse(q.OwnerID)
		params.OwnerID = &id
	}
	if q.WalletID != "" {
		id := uuid.MustParse(q.WalletID)
		params.WalletID = &id
	}
	return params, true
}

// intakeRequest converts a bound body into the service request.
func intakeRequest(c *gin.Context, owner uuid.UUID, body dto.IntakeRequest) (ports.IntakeRequest, bool) {
	key := c.GetHeader(headerIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key is too long"))
		return ports.IntakeRequest{}, false
	}

	return ports.IntakeRequest{
		OwnerID:        owner,
		Amount:         *body.Amount,
		Currency:       body.Currency,
		Description:    body.Description,
		Location:       body.Location,
		Date:           body.Date,
		BankAccountID:  body.BankAccountID,
		IdempotencyKey: key,
	}, true
}
