package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the approval queue and wallet administration.
type AdminHandler struct {
	settlementSvc ports.SettlementService
	walletSvc     ports.WalletService
	reportingSvc  ports.ReportingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(settlementSvc ports.SettlementService, walletSvc ports.WalletService, reportingSvc ports.ReportingService) *AdminHandler {
	return &AdminHandler{
		settlementSvc: settlementSvc,
		walletSvc:     walletSvc,
		reportingSvc:  reportingSvc,
	}
}

// ListTransactions handles GET /api/v1/admin/transactions across all wallets.
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	params, ok := listParams(c)
	if !ok {
		return
	}

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, txns, total, params.Page, params.PageSize)
}

// SettleTransaction handles PATCH /api/v1/admin/transactions/:id/status.
func (h *AdminHandler) SettleTransaction(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.SettleRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.settlementSvc.Settle(c.Request.Context(), ports.SettleRequest{
		Actor:         actor,
		TransactionID: id,
		Status:        req.Status,
		Overrides: domain.Overrides{
			Amount:      req.Amount,
			Description: req.Description,
			Location:    req.Location,
			Date:        req.Date,
		},
		AdminNote: req.AdminNote,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSettlementResponse(result))
}

// ReverseTransaction handles POST /api/v1/admin/transactions/:id/reverse.
func (h *AdminHandler) ReverseTransaction(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.ReverseRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.settlementSvc.Reverse(c.Request.Context(), ports.ReverseRequest{
		Actor:         actor,
		TransactionID: id,
		Status:        req.Status,
		AdminNote:     req.AdminNote,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSettlementResponse(result))
}

// SetWalletStatus handles PATCH /api/v1/admin/wallets/:id/status.
func (h *AdminHandler) SetWalletStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.WalletStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.walletSvc.SetWalletStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// WalletStats handles GET /api/v1/admin/wallets/:id/stats.
func (h *AdminHandler) WalletStats(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	stats, err := h.reportingSvc.GetStats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Reconcile handles GET /api/v1/admin/wallets/:id/reconcile.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.reportingSvc.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}

func toSettlementResponse(r *ports.SettlementResult) dto.SettlementResponse {
	return dto.SettlementResponse{
		Transaction:   r.Transaction,
		WalletUpdated: r.WalletUpdated,
		NewBalance:    r.NewBalance,
	}
}
