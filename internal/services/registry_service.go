// internal/services/registry_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/models"
	"github.com/druklands/landledger/internal/utils"
)

const componentParcelRegistry = "parcel_registry"

// RegistryService owns the canonical parcel records: registration,
// the land-level verification flag, and area accounting for
// fractionalization. Only the approver account mutates it.
type RegistryService struct {
	db     *gorm.DB
	events *EventService
}

type RegisterLandRequest struct {
	ThramNumber   string               `json:"thram_number" validate:"required,thram_number"`
	PlotNumber    string               `json:"plot_number" validate:"required,plot_number"`
	Location      string               `json:"location" validate:"required,max=255"`
	AreaAcres     int64                `json:"area_acres" validate:"min=0"`
	AreaDecimals  int64                `json:"area_decimals" validate:"min=0,max=99"`
	Owners        []uuid.UUID          `json:"owners"`
	DIDs          []string             `json:"dids"`
	BasisPoints   []int64              `json:"basis_points"`
	OwnershipType models.OwnershipType `json:"ownership_type" validate:"required,oneof=single joint household_head"`
}

func NewRegistryService(db *gorm.DB, events *EventService) *RegistryService {
	return &RegistryService{
		db:     db,
		events: events,
	}
}

// requireApprover resolves the caller and checks it is the registry
// authority account.
func requireApprover(db *gorm.DB, callerID uuid.UUID) (*models.User, error) {
	var caller models.User
	if err := db.First(&caller, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Authorization("caller account not found")
		}
		return nil, apperrors.Internal(err, "failed to load caller")
	}

	if caller.UserType != models.UserTypeApprover {
		return nil, apperrors.Authorization("only the registry approver may perform this operation")
	}

	if caller.Status != models.UserStatusActive {
		return nil, apperrors.Authorization("approver account is not active")
	}

	return &caller, nil
}

// validateShares checks the parallel owner/DID/basis-point vectors:
// equal non-zero lengths, no nil owner, no empty DID, sum exactly
// TotalBasisPoints.
func validateShares(owners []uuid.UUID, dids []string, basisPoints []int64) error {
	if len(owners) == 0 {
		return apperrors.Validation("at least one owner is required")
	}

	if len(owners) != len(dids) || len(owners) != len(basisPoints) {
		return apperrors.Validation("owners, dids, and basis_points must have the same length")
	}

	var sum int64
	for i, owner := range owners {
		if owner == uuid.Nil {
			return apperrors.Validation("owner at index %d is empty", i)
		}
		if dids[i] == "" {
			return apperrors.Validation("did at index %d is empty", i)
		}
		if basisPoints[i] <= 0 {
			return apperrors.Validation("basis points at index %d must be positive", i)
		}
		sum += basisPoints[i]
	}

	if sum != models.TotalBasisPoints {
		return apperrors.Validation("ownership basis points must sum to %d, got %d", models.TotalBasisPoints, sum)
	}

	return nil
}

// RegisterLand creates a parcel exactly once per plot number. The
// parcel starts unverified with its full area available.
func (s *RegistryService) RegisterLand(approverID uuid.UUID, req *RegisterLandRequest) (*models.Parcel, error) {
	if _, err := requireApprover(s.db, approverID); err != nil {
		return nil, err
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Validation("invalid registration request: %v", err)
	}

	if err := validateShares(req.Owners, req.DIDs, req.BasisPoints); err != nil {
		return nil, err
	}

	area := models.Area{Acres: req.AreaAcres, Decimals: req.AreaDecimals}
	if !area.Valid() || area.IsZero() {
		return nil, apperrors.Validation("total area must be positive with decimals below %d", models.DecimalsPerAcre)
	}

	var count int64
	if err := s.db.Model(&models.Parcel{}).Where("plot_number = ?", req.PlotNumber).Count(&count).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to check plot number")
	}
	if count > 0 {
		return nil, apperrors.Validation("plot number %s is already registered", req.PlotNumber)
	}

	parcel := &models.Parcel{
		ThramNumber:   req.ThramNumber,
		PlotNumber:    req.PlotNumber,
		Location:      req.Location,
		TotalArea:     area,
		AvailableArea: area,
		OwnershipType: req.OwnershipType,
		Verified:      false,
		RegisteredBy:  approverID,
		RegisteredAt:  time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(parcel).Error; err != nil {
			return fmt.Errorf("failed to create parcel: %w", err)
		}

		parties := make([]string, 0, len(req.Owners))
		for i, owner := range req.Owners {
			share := &models.ParcelShare{
				ParcelID:    parcel.ID,
				HolderID:    owner,
				HolderDID:   req.DIDs[i],
				BasisPoints: req.BasisPoints[i],
			}
			if err := tx.Create(share).Error; err != nil {
				return fmt.Errorf("failed to create parcel share: %w", err)
			}
			parties = append(parties, owner.String())
		}

		return s.events.Emit(tx, componentParcelRegistry, "land_registered", parcelKey(req.PlotNumber), approverID, parties, models.JSONB{
			"thram_number":   req.ThramNumber,
			"plot_number":    req.PlotNumber,
			"location":       req.Location,
			"area_acres":     req.AreaAcres,
			"area_decimals":  req.AreaDecimals,
			"ownership_type": string(req.OwnershipType),
			"dids":           req.DIDs,
			"basis_points":   req.BasisPoints,
		})
	})
	if err != nil {
		return nil, wrapServiceError(err, "land registration failed")
	}

	s.db.Preload("Shares").First(parcel, "id = ?", parcel.ID)
	return parcel, nil
}

// VerifyLand sets the land-level verification flag. Re-verifying an
// already-verified parcel is a harmless no-op; the verification event
// is emitted only on the first transition.
func (s *RegistryService) VerifyLand(approverID uuid.UUID, thramNumber, plotNumber string) (*models.Parcel, error) {
	if _, err := requireApprover(s.db, approverID); err != nil {
		return nil, err
	}

	var parcel models.Parcel
	if err := s.db.First(&parcel, "plot_number = ?", plotNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("plot %s is not registered", plotNumber)
		}
		return nil, apperrors.Internal(err, "failed to load parcel")
	}

	if parcel.ThramNumber != thramNumber {
		return nil, apperrors.Mismatch("plot %s is registered under thram %s, not %s", plotNumber, parcel.ThramNumber, thramNumber)
	}

	if parcel.Verified {
		return &parcel, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&parcel).Update("verified", true).Error; err != nil {
			return fmt.Errorf("failed to update verification flag: %w", err)
		}

		return s.events.Emit(tx, componentParcelRegistry, "land_verified", parcelKey(plotNumber), approverID, nil, models.JSONB{
			"thram_number": thramNumber,
			"plot_number":  plotNumber,
		})
	})
	if err != nil {
		return nil, wrapServiceError(err, "land verification failed")
	}

	parcel.Verified = true
	return &parcel, nil
}

// FractionalizeLand deducts area from a parcel's available pool. It
// runs on the caller's transaction: the tokenization engine invokes it
// while minting a fraction token so the deduction and the mint commit
// or roll back together.
func (s *RegistryService) FractionalizeLand(tx *gorm.DB, actorID uuid.UUID, plotNumber string, amount models.Area) (*models.Parcel, error) {
	if _, err := requireApprover(tx, actorID); err != nil {
		return nil, err
	}

	if !amount.Valid() || amount.IsZero() {
		return nil, apperrors.Validation("fractionalization amount must be positive with decimals below %d", models.DecimalsPerAcre)
	}

	var parcel models.Parcel
	if err := tx.First(&parcel, "plot_number = ?", plotNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("plot %s is not registered", plotNumber)
		}
		return nil, apperrors.Internal(err, "failed to load parcel")
	}

	if !parcel.AvailableArea.Covers(amount) {
		return nil, apperrors.InsufficientArea(
			"plot %s has %d.%02d acres available, requested %d.%02d",
			plotNumber,
			parcel.AvailableArea.Acres, parcel.AvailableArea.Decimals,
			amount.Acres, amount.Decimals,
		)
	}

	remaining := parcel.AvailableArea.Sub(amount)
	updates := map[string]interface{}{
		"available_acres":    remaining.Acres,
		"available_decimals": remaining.Decimals,
	}
	if err := tx.Model(&parcel).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to deduct parcel area")
	}

	err := s.events.Emit(tx, componentParcelRegistry, "land_fractionalized", parcelKey(plotNumber), actorID, nil, models.JSONB{
		"plot_number":        plotNumber,
		"deducted_acres":     amount.Acres,
		"deducted_decimals":  amount.Decimals,
		"remaining_acres":    remaining.Acres,
		"remaining_decimals": remaining.Decimals,
	})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to emit fractionalization event")
	}

	parcel.AvailableArea = remaining
	return &parcel, nil
}

// AttachDocument appends a deed document URL to a parcel record.
func (s *RegistryService) AttachDocument(approverID uuid.UUID, plotNumber, documentURL string) (*models.Parcel, error) {
	if _, err := requireApprover(s.db, approverID); err != nil {
		return nil, err
	}

	if documentURL == "" {
		return nil, apperrors.Validation("document URL is required")
	}

	var parcel models.Parcel
	if err := s.db.First(&parcel, "plot_number = ?", plotNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("plot %s is not registered", plotNumber)
		}
		return nil, apperrors.Internal(err, "failed to load parcel")
	}

	parcel.DocumentURLs = append(parcel.DocumentURLs, documentURL)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&parcel).Update("document_urls", parcel.DocumentURLs).Error; err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}

		return s.events.Emit(tx, componentParcelRegistry, "document_attached", parcelKey(plotNumber), approverID, nil, models.JSONB{
			"plot_number":  plotNumber,
			"document_url": documentURL,
		})
	})
	if err != nil {
		return nil, wrapServiceError(err, "document attachment failed")
	}

	return &parcel, nil
}

// GetLandByPlot returns one parcel with its owner shares.
func (s *RegistryService) GetLandByPlot(plotNumber string) (*models.Parcel, error) {
	var parcel models.Parcel
	if err := s.db.Preload("Shares").First(&parcel, "plot_number = ?", plotNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("plot %s is not registered", plotNumber)
		}
		return nil, apperrors.Internal(err, "failed to load parcel")
	}

	return &parcel, nil
}

// GetPlotsByThram returns every parcel registered under a thram.
func (s *RegistryService) GetPlotsByThram(thramNumber string) ([]models.Parcel, error) {
	var parcels []models.Parcel
	if err := s.db.Preload("Shares").Where("thram_number = ?", thramNumber).
		Order("plot_number ASC").Find(&parcels).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch parcels")
	}

	if len(parcels) == 0 {
		return nil, apperrors.NotFound("no plots registered under thram %s", thramNumber)
	}

	return parcels, nil
}

// GetLandsByOwner returns the parcels an identity holds shares in;
// empty result is not an error.
func (s *RegistryService) GetLandsByOwner(ownerID uuid.UUID) ([]models.Parcel, error) {
	return s.parcelsByShareFilter("holder_id = ?", ownerID)
}

// GetLandsByDid returns the parcels a DID holds shares in; empty
// result is not an error.
func (s *RegistryService) GetLandsByDid(did string) ([]models.Parcel, error) {
	return s.parcelsByShareFilter("holder_did = ?", did)
}

func (s *RegistryService) parcelsByShareFilter(condition string, value interface{}) ([]models.Parcel, error) {
	var parcelIDs []uuid.UUID
	if err := s.db.Model(&models.ParcelShare{}).Where(condition, value).
		Distinct().Pluck("parcel_id", &parcelIDs).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to look up parcel shares")
	}

	if len(parcelIDs) == 0 {
		return []models.Parcel{}, nil
	}

	var parcels []models.Parcel
	if err := s.db.Preload("Shares").Where("id IN ?", parcelIDs).
		Order("plot_number ASC").Find(&parcels).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch parcels")
	}

	return parcels, nil
}

func parcelKey(plotNumber string) string {
	return "parcel:" + plotNumber
}

// wrapServiceError passes typed errors through unchanged and wraps
// anything else as internal.
func wrapServiceError(err error, message string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(err, message)
}
