// internal/handlers/token.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/druklands/landledger/internal/models"
	"github.com/druklands/landledger/internal/services"
	"github.com/druklands/landledger/internal/utils"
)

type TokenHandler struct {
	tokenizationService *services.TokenizationService
	verifierService     *services.VerifierService
}

func NewTokenHandler(tokenizationService *services.TokenizationService, verifierService *services.VerifierService) *TokenHandler {
	return &TokenHandler{
		tokenizationService: tokenizationService,
		verifierService:     verifierService,
	}
}

type mintThramRequest struct {
	ThramNumber string `json:"thram_number" validate:"required"`
	services.MintSharesRequest
}

type mintPlotRequest struct {
	PlotNumber string `json:"plot_number" validate:"required"`
	services.MintSharesRequest
}

type mintFractionRequest struct {
	PlotNumber   string `json:"plot_number" validate:"required"`
	AreaAcres    int64  `json:"area_acres" validate:"min=0"`
	AreaDecimals int64  `json:"area_decimals" validate:"min=0,max=99"`
	services.MintSharesRequest
}

// POST /tokens/thram
func (h *TokenHandler) MintThramToken(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	var req mintThramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	token, err := h.tokenizationService.MintThramToken(approverID, req.ThramNumber, &req.MintSharesRequest)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"token": token})
}

// POST /tokens/plot
func (h *TokenHandler) MintPlotToken(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	var req mintPlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	token, err := h.tokenizationService.MintPlotToken(approverID, req.PlotNumber, &req.MintSharesRequest)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"token": token})
}

// POST /tokens/fraction
func (h *TokenHandler) MintFractionToken(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	var req mintFractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	token, err := h.tokenizationService.MintFractionToken(approverID, req.PlotNumber, req.AreaAcres, req.AreaDecimals, &req.MintSharesRequest)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"token": token})
}

// GET /tokens/:id
func (h *TokenHandler) GetToken(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	token, err := h.tokenizationService.GetToken(tokenID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"token": token})
}

// GET /tokens?thram=|plot=
func (h *TokenHandler) ListTokens(c *gin.Context) {
	if thram := c.Query("thram"); thram != "" {
		tokens, err := h.tokenizationService.GetTokensByThram(thram)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, gin.H{"tokens": tokens})
		return
	}

	plot := c.Query("plot")
	if plot == "" {
		utils.BadRequestResponse(c, "thram or plot query parameter is required", nil)
		return
	}

	tokens, err := h.tokenizationService.GetTokensByPlot(plot)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"tokens": tokens})
}

// PUT /tokens/:id/verify/bank
func (h *TokenHandler) VerifyBankStatus(c *gin.Context) {
	h.verifyStatus(c, h.verifierService.VerifyBankStatus)
}

// PUT /tokens/:id/verify/court
func (h *TokenHandler) VerifyCourtStatus(c *gin.Context) {
	h.verifyStatus(c, h.verifierService.VerifyCourtStatus)
}

// PUT /tokens/:id/verify/tax
func (h *TokenHandler) VerifyTaxStatus(c *gin.Context) {
	h.verifyStatus(c, h.verifierService.VerifyTaxStatus)
}

func (h *TokenHandler) verifyStatus(c *gin.Context, verify func(callerID uuid.UUID, tokenID int64) (*models.TokenVerification, error)) {
	verifierID, ok := callerID(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	record, err := verify(verifierID, tokenID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"verification": record})
}

// GET /tokens/:id/verification
func (h *TokenHandler) GetVerification(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	record, err := h.verifierService.GetVerification(tokenID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"verification": record})
}
