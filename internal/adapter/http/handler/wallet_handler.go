package handler

import (
	"context"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler serves the caller's own wallet and transactions.
type WalletHandler struct {
	walletSvc    ports.WalletService
	intakeSvc    ports.IntakeService
	reportingSvc ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, intakeSvc ports.IntakeService, reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{
		walletSvc:    walletSvc,
		intakeSvc:    intakeSvc,
		reportingSvc: reportingSvc,
	}
}

// GetWallet handles GET /api/v1/wallet. The wallet is created on first access.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// ListTransactions handles GET /api/v1/wallet/transactions.
// Results are always scoped to the caller.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	params, ok := listParams(c)
	if !ok {
		return
	}
	params.OwnerID = &actor.ID
	params.WalletID = nil

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, txns, total, params.Page, params.PageSize)
}

// GetTransaction handles GET /api/v1/wallet/transactions/:id.
func (h *WalletHandler) GetTransaction(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	txn, err := h.reportingSvc.GetTransaction(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txn)
}

// CreateTransaction handles POST /api/v1/wallet/transactions.
func (h *WalletHandler) CreateTransaction(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.intake(c, req.IntakeRequest, func(ctx context.Context, in ports.IntakeRequest) (*domain.Transaction, error) {
		return h.intakeSvc.Create(ctx, req.Type, in)
	})
}

// CreateDeposit handles POST /api/v1/wallet/deposits.
func (h *WalletHandler) CreateDeposit(c *gin.Context) {
	var req dto.IntakeRequest
	if !bindJSON(c, &req) {
		return
	}
	h.intake(c, req, h.intakeSvc.CreateDeposit)
}

// CreateWithdrawal handles POST /api/v1/wallet/withdrawals.
func (h *WalletHandler) CreateWithdrawal(c *gin.Context) {
	var req dto.IntakeRequest
	if !bindJSON(c, &req) {
		return
	}
	h.intake(c, req, h.intakeSvc.CreateWithdrawal)
}

func (h *WalletHandler) intake(
	c *gin.Context,
	body dto.IntakeRequest,
	create func(context.Context, ports.IntakeRequest) (*domain.Transaction, error),
) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	in, ok := intakeRequest(c, actor.ID, body)
	if !ok {
		return
	}

	txn, err := create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(auditResourceKey, txn.ID.String())
	response.Created(c, txn)
}
