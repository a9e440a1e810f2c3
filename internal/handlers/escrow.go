// internal/handlers/escrow.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/druklands/landledger/internal/services"
	"github.com/druklands/landledger/internal/utils"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
}

func NewEscrowHandler(escrowService *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
	}
}

// POST /escrow/:id/list
func (h *EscrowHandler) ListForSale(c *gin.Context) {
	sellerID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req services.ListForSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	sale, err := h.escrowService.ListLandForSale(sellerID, tokenID, req.Price)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"sale": sale})
}

// PUT /escrow/:id/verify
func (h *EscrowHandler) VerifySale(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	sale, err := h.escrowService.VerifyLandDetails(approverID, tokenID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"sale": sale})
}

// POST /escrow/:id/payment-intent
func (h *EscrowHandler) CreatePaymentIntent(c *gin.Context) {
	buyerID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	clientSecret, err := h.escrowService.CreatePaymentIntent(buyerID, tokenID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"client_secret": clientSecret})
}

// POST /escrow/:id/pay
func (h *EscrowHandler) MakePayment(c *gin.Context) {
	buyerID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req services.MakePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	sale, err := h.escrowService.MakePayment(buyerID, tokenID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"sale": sale})
}

// POST /escrow/:id/transfer
func (h *EscrowHandler) TransferOwnership(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	if err := h.escrowService.TransferOwnershipAfterPayment(actorID, tokenID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token_id":    tokenID,
		"transferred": true,
	})
}

// DELETE /escrow/:id
func (h *EscrowHandler) CancelSale(c *gin.Context) {
	sellerID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	if err := h.escrowService.CancelSale(sellerID, tokenID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token_id":  tokenID,
		"cancelled": true,
	})
}

// POST /escrow/withdraw
func (h *EscrowHandler) Withdraw(c *gin.Context) {
	holderID, ok := callerID(c)
	if !ok {
		return
	}

	amount, err := h.escrowService.Withdraw(holderID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"amount": amount})
}

// GET /escrow/balance
func (h *EscrowHandler) GetBalance(c *gin.Context) {
	holderID, ok := callerID(c)
	if !ok {
		return
	}

	amount, err := h.escrowService.GetBalance(holderID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"balance": amount})
}

// GET /escrow/:id
func (h *EscrowHandler) GetSale(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	sale, err := h.escrowService.GetSale(tokenID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"sale": sale})
}
