// internal/services/tokenization_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/models"
)

const componentTokenization = "tokenization"

// TokenizationService mints ownership tokens against registered land.
// Token IDs come from one strictly increasing counter shared by all
// three mint variants; tokens are immutable after mint and can never
// be burned.
type TokenizationService struct {
	db       *gorm.DB
	events   *EventService
	registry *RegistryService
}

type MintSharesRequest struct {
	Owners      []uuid.UUID `json:"owners"`
	DIDs        []string    `json:"dids"`
	BasisPoints []int64     `json:"basis_points"`
}

func NewTokenizationService(db *gorm.DB, events *EventService, registry *RegistryService) *TokenizationService {
	return &TokenizationService{
		db:       db,
		events:   events,
		registry: registry,
	}
}

// MintThramToken mints a token representing a whole thram. The claimed
// area is the sum of the thram's parcels.
func (s *TokenizationService) MintThramToken(callerID uuid.UUID, thramNumber string, shares *MintSharesRequest) (*models.LandToken, error) {
	if _, err := requireApprover(s.db, callerID); err != nil {
		return nil, err
	}
	if err := validateShares(shares.Owners, shares.DIDs, shares.BasisPoints); err != nil {
		return nil, err
	}

	var parcels []models.Parcel
	if err := s.db.Where("thram_number = ?", thramNumber).Find(&parcels).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to load thram parcels")
	}
	if len(parcels) == 0 {
		return nil, apperrors.NotFound("thram %s is not registered", thramNumber)
	}

	var totalDecimals int64
	for _, p := range parcels {
		totalDecimals += p.TotalArea.Acres*models.DecimalsPerAcre + p.TotalArea.Decimals
	}
	claimed := models.Area{
		Acres:    totalDecimals / models.DecimalsPerAcre,
		Decimals: totalDecimals % models.DecimalsPerAcre,
	}

	return s.mint(callerID, models.TokenTypeThram, thramNumber, "", claimed, shares, nil)
}

// MintPlotToken mints a token representing one whole plot.
func (s *TokenizationService) MintPlotToken(callerID uuid.UUID, plotNumber string, shares *MintSharesRequest) (*models.LandToken, error) {
	if _, err := requireApprover(s.db, callerID); err != nil {
		return nil, err
	}
	if err := validateShares(shares.Owners, shares.DIDs, shares.BasisPoints); err != nil {
		return nil, err
	}

	parcel, err := s.registry.GetLandByPlot(plotNumber)
	if err != nil {
		return nil, err
	}

	return s.mint(callerID, models.TokenTypePlot, parcel.ThramNumber, plotNumber, parcel.TotalArea, shares, nil)
}

// MintFractionToken mints a token over a slice of a plot's area. The
// parcel's available-area deduction and the token creation commit in
// one transaction: if either fails, neither happens.
func (s *TokenizationService) MintFractionToken(callerID uuid.UUID, plotNumber string, acres, decimals int64, shares *MintSharesRequest) (*models.LandToken, error) {
	if _, err := requireApprover(s.db, callerID); err != nil {
		return nil, err
	}
	if err := validateShares(shares.Owners, shares.DIDs, shares.BasisPoints); err != nil {
		return nil, err
	}

	amount := models.Area{Acres: acres, Decimals: decimals}
	if !amount.Valid() || amount.IsZero() {
		return nil, apperrors.Validation("fraction area must be positive with decimals below %d", models.DecimalsPerAcre)
	}

	parcel, err := s.registry.GetLandByPlot(plotNumber)
	if err != nil {
		return nil, err
	}
	if !parcel.AvailableArea.Covers(amount) {
		return nil, apperrors.InsufficientArea(
			"plot %s has %d.%02d acres available, requested %d.%02d",
			plotNumber,
			parcel.AvailableArea.Acres, parcel.AvailableArea.Decimals,
			acres, decimals,
		)
	}

	fractionalize := func(tx *gorm.DB) error {
		_, err := s.registry.FractionalizeLand(tx, callerID, plotNumber, amount)
		return err
	}

	return s.mint(callerID, models.TokenTypeFraction, parcel.ThramNumber, plotNumber, amount, shares, fractionalize)
}

// mint assigns the next token ID and creates the token, its shares,
// and the mint event, running any extra step (the fraction deduction)
// on the same transaction.
func (s *TokenizationService) mint(callerID uuid.UUID, tokenType models.TokenType, thramNumber, plotNumber string, claimed models.Area, shares *MintSharesRequest, extra func(*gorm.DB) error) (*models.LandToken, error) {
	token := &models.LandToken{
		TokenType:   tokenType,
		ThramNumber: thramNumber,
		PlotNumber:  plotNumber,
		ClaimedArea: claimed,
		MintedBy:    callerID,
		MintedAt:    time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}

		tokenID, err := s.nextTokenID(tx)
		if err != nil {
			return err
		}
		token.TokenID = tokenID

		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}

		parties := make([]string, 0, len(shares.Owners))
		dids := make([]string, 0, len(shares.Owners))
		for i, owner := range shares.Owners {
			share := &models.TokenShare{
				LandTokenID: token.ID,
				TokenID:     tokenID,
				HolderID:    owner,
				HolderDID:   shares.DIDs[i],
				BasisPoints: shares.BasisPoints[i],
			}
			if err := tx.Create(share).Error; err != nil {
				return fmt.Errorf("failed to create token share: %w", err)
			}
			parties = append(parties, owner.String())
			dids = append(dids, shares.DIDs[i])
		}

		return s.events.Emit(tx, componentTokenization, "token_minted", tokenKey(tokenID), callerID, parties, models.JSONB{
			"token_id":      tokenID,
			"token_type":    string(tokenType),
			"thram_number":  thramNumber,
			"plot_number":   plotNumber,
			"area_acres":    claimed.Acres,
			"area_decimals": claimed.Decimals,
			"dids":          dids,
			"basis_points":  shares.BasisPoints,
		})
	})
	if err != nil {
		return nil, wrapServiceError(err, "token mint failed")
	}

	s.db.Preload("Shares").First(token, "id = ?", token.ID)
	return token, nil
}

// nextTokenID increments the shared counter row and returns the new
// value. The increment happens inside the mint transaction, so a
// failed mint never consumes an ID that another committed mint skips.
func (s *TokenizationService) nextTokenID(tx *gorm.DB) (int64, error) {
	result := tx.Model(&models.TokenCounter{}).Where("id = ?", 1).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to advance token counter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := tx.Create(&models.TokenCounter{ID: 1, Value: 1}).Error; err != nil {
			return 0, fmt.Errorf("failed to initialize token counter: %w", err)
		}
		return 1, nil
	}

	var counter models.TokenCounter
	if err := tx.First(&counter, "id = ?", 1).Error; err != nil {
		return 0, fmt.Errorf("failed to read token counter: %w", err)
	}
	return counter.Value, nil
}

// GetToken returns the full token projection; zero and unassigned IDs
// are not found.
func (s *TokenizationService) GetToken(tokenID int64) (*models.LandToken, error) {
	if tokenID <= 0 {
		return nil, apperrors.NotFound("token %d does not exist", tokenID)
	}

	var token models.LandToken
	if err := s.db.Preload("Shares").First(&token, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("token %d does not exist", tokenID)
		}
		return nil, apperrors.Internal(err, "failed to load token")
	}

	return &token, nil
}

// GetTokensByThram lists tokens indexed under a thram; empty result is
// not an error.
func (s *TokenizationService) GetTokensByThram(thramNumber string) ([]models.LandToken, error) {
	var tokens []models.LandToken
	if err := s.db.Preload("Shares").Where("thram_number = ?", thramNumber).
		Order("token_id ASC").Find(&tokens).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch tokens")
	}
	return tokens, nil
}

// GetTokensByPlot lists tokens indexed under a plot; empty result is
// not an error.
func (s *TokenizationService) GetTokensByPlot(plotNumber string) ([]models.LandToken, error) {
	var tokens []models.LandToken
	if err := s.db.Preload("Shares").Where("plot_number = ?", plotNumber).
		Order("token_id ASC").Find(&tokens).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to fetch tokens")
	}
	return tokens, nil
}

// IsHolder reports whether an identity holds any share of a token.
func (s *TokenizationService) IsHolder(tokenID int64, holderID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.Model(&models.TokenShare{}).
		Where("token_id = ? AND holder_id = ?", tokenID, holderID).
		Count(&count).Error; err != nil {
		return false, apperrors.Internal(err, "failed to check token holding")
	}
	return count > 0, nil
}

// BurnToken always fails: tokens are permanent so the audit trail of
// every mint stays unbroken.
func (s *TokenizationService) BurnToken(callerID uuid.UUID, tokenID int64) error {
	return apperrors.InvalidState("land tokens are permanent and cannot be burned")
}

// transferCustodyTx replaces a token's share rows with the buyer at
// full ownership. Escrow settlement is the only caller; it runs on the
// settlement transaction.
func (s *TokenizationService) transferCustodyTx(tx *gorm.DB, tokenID int64, sellerID, buyerID uuid.UUID) error {
	var token models.LandToken
	if err := tx.First(&token, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("token %d does not exist", tokenID)
		}
		return apperrors.Internal(err, "failed to load token")
	}

	var sellerShares int64
	if err := tx.Model(&models.TokenShare{}).
		Where("token_id = ? AND holder_id = ?", tokenID, sellerID).
		Count(&sellerShares).Error; err != nil {
		return apperrors.Internal(err, "failed to check seller holding")
	}
	if sellerShares == 0 {
		return apperrors.Authorization("seller no longer holds token %d", tokenID)
	}

	var buyer models.User
	if err := tx.First(&buyer, "id = ?", buyerID).Error; err != nil {
		return apperrors.Internal(err, "failed to load buyer")
	}

	if err := tx.Where("token_id = ?", tokenID).Delete(&models.TokenShare{}).Error; err != nil {
		return apperrors.Internal(err, "failed to clear token shares")
	}

	share := &models.TokenShare{
		LandTokenID: token.ID,
		TokenID:     tokenID,
		HolderID:    buyerID,
		HolderDID:   buyer.DID,
		BasisPoints: models.TotalBasisPoints,
	}
	if err := tx.Create(share).Error; err != nil {
		return apperrors.Internal(err, "failed to assign token to buyer")
	}

	return nil
}
