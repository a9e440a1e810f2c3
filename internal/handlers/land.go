// internal/handlers/land.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/druklands/landledger/internal/services"
	"github.com/druklands/landledger/internal/utils"
)

type LandHandler struct {
	registryService *services.RegistryService
	storageService  *services.StorageService
}

func NewLandHandler(registryService *services.RegistryService, storageService *services.StorageService) *LandHandler {
	return &LandHandler{
		registryService: registryService,
		storageService:  storageService,
	}
}

// POST /lands
func (h *LandHandler) RegisterLand(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.RegisterLandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	parcel, err := h.registryService.RegisterLand(approverID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"parcel": parcel})
}

// PUT /lands/:plot/verify
func (h *LandHandler) VerifyLand(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	var req struct {
		ThramNumber string `json:"thram_number" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid input", err.Error())
		return
	}

	parcel, err := h.registryService.VerifyLand(approverID, req.ThramNumber, c.Param("plot"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"parcel": parcel})
}

// POST /lands/:plot/documents
func (h *LandHandler) AttachDocument(c *gin.Context) {
	approverID, ok := callerID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("document")
	if err != nil {
		utils.BadRequestResponse(c, "document file is required", err.Error())
		return
	}
	defer file.Close()

	upload, err := h.storageService.UploadDeed(file, header)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	parcel, err := h.registryService.AttachDocument(approverID, c.Param("plot"), upload.URL)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"parcel":   parcel,
		"document": upload,
	})
}

// GET /lands/:plot
func (h *LandHandler) GetLandByPlot(c *gin.Context) {
	parcel, err := h.registryService.GetLandByPlot(c.Param("plot"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"parcel": parcel})
}

// GET /thrams/:thram/plots
func (h *LandHandler) GetPlotsByThram(c *gin.Context) {
	parcels, err := h.registryService.GetPlotsByThram(c.Param("thram"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"parcels": parcels})
}

// GET /lands?owner=|did=
func (h *LandHandler) ListLands(c *gin.Context) {
	if did := c.Query("did"); did != "" {
		parcels, err := h.registryService.GetLandsByDid(did)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, gin.H{"parcels": parcels})
		return
	}

	ownerStr := c.Query("owner")
	if ownerStr == "" {
		utils.BadRequestResponse(c, "owner or did query parameter is required", nil)
		return
	}

	ownerID, err := uuid.Parse(ownerStr)
	if err != nil {
		utils.BadRequestResponse(c, "owner must be a valid UUID", nil)
		return
	}

	parcels, err := h.registryService.GetLandsByOwner(ownerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"parcels": parcels})
}
