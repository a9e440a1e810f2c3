// internal/handlers/verifier.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/druklands/landledger/internal/models"
	"github.com/druklands/landledger/internal/services"
	"github.com/druklands/landledger/internal/utils"
)

type VerifierHandler struct {
	verifierService *services.VerifierService
	adminService    *services.VerifierAdminService
}

func NewVerifierHandler(verifierService *services.VerifierService, adminService *services.VerifierAdminService) *VerifierHandler {
	return &VerifierHandler{
		verifierService: verifierService,
		adminService:    adminService,
	}
}

type verifierRequest struct {
	VerifierID uuid.UUID               `json:"verifier_id" validate:"required"`
	Role       models.VerifierRoleType `json:"role" validate:"required,oneof=bank court tax"`
}

type batchVerifierRequest struct {
	VerifierIDs []uuid.UUID               `json:"verifier_ids" validate:"required,min=1"`
	Roles       []models.VerifierRoleType `json:"roles" validate:"required,min=1"`
}

// POST /verifiers
func (h *VerifierHandler) AddVerifier(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req verifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	if err := h.verifierService.AddVerifier(actorID, req.Role, req.VerifierID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"verifier_id": req.VerifierID,
		"role":        req.Role,
	})
}

// DELETE /verifiers
func (h *VerifierHandler) RemoveVerifier(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req verifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	if err := h.verifierService.RemoveVerifier(actorID, req.Role, req.VerifierID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"verifier_id": req.VerifierID,
		"role":        req.Role,
		"removed":     true,
	})
}

// GET /verifiers/:id/roles/:role
func (h *VerifierHandler) CheckVerifier(c *gin.Context) {
	verifierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "verifier id must be a valid UUID", nil)
		return
	}

	isMember, err := h.verifierService.IsVerifier(verifierID, models.VerifierRoleType(c.Param("role")))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"verifier_id": verifierID,
		"role":        c.Param("role"),
		"is_verifier": isMember,
	})
}

// POST /verifiers/batch
func (h *VerifierHandler) BatchAddVerifiers(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req batchVerifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	if err := h.adminService.BatchAddVerifiers(actorID, req.VerifierIDs, req.Roles); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"added": len(req.VerifierIDs)})
}

// DELETE /verifiers/batch
func (h *VerifierHandler) BatchRemoveVerifiers(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req batchVerifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	if err := h.adminService.BatchRemoveVerifiers(actorID, req.VerifierIDs, req.Roles); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"removed": len(req.VerifierIDs)})
}

// PUT /governance/:scope/owner
func (h *VerifierHandler) TransferOwnership(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req struct {
		NewOwnerID uuid.UUID `json:"new_owner_id" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	scope := models.GovernanceScope(c.Param("scope"))
	if err := h.adminService.TransferOwnership(actorID, scope, req.NewOwnerID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"scope":     scope,
		"new_owner": req.NewOwnerID,
	})
}
