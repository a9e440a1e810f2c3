// internal/services/verifier_service.go
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

const componentVerifierRegistry = "verifier_registry"

// VerifierService owns the three independent verifier role sets and
// the per-token approval flags. The derived is_verified flag flips to
// true exactly once, when the third role approves, and never reverts.
type VerifierService struct {
	db     *gorm.DB
	events *EventService
}

func NewVerifierService(db *gorm.DB, events *EventService) *VerifierService {
	return &VerifierService{
		db:     db,
		events: events,
	}
}

// authority loads the current owner of a governed scope.
func authority(db *gorm.DB, scope models.GovernanceScope) (uuid.UUID, error) {
	var auth models.GovernanceAuthority
	if err := db.First(&auth, "scope = ?", scope).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, apperrors.Setup("governance authority for %s is not initialized", scope)
		}
		return uuid.Nil, apperrors.Internal(err, "failed to load governance authority")
	}
	return auth.OwnerID, nil
}

func validRole(role models.VerifierRoleType) bool {
	switch role {
	case models.VerifierRoleBank, models.VerifierRoleCourt, models.VerifierRoleTax:
		return true
	}
	return false
}

// AddVerifier grants one identity one verifier role. Only the
// verifier registry's governance owner may call it; a redundant add
// is rejected.
func (s *VerifierService) AddVerifier(callerID uuid.UUID, role models.VerifierRoleType, verifierID uuid.UUID) error {
	owner, err := authority(s.db, models.ScopeVerifierRegistry)
	if err != nil {
		return err
	}
	if callerID != owner {
		return apperrors.Authorization("only the verifier registry owner may manage verifier membership")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.addVerifierTx(tx, callerID, role, verifierID)
	})
}

// RemoveVerifier revokes one identity's verifier role. Removing an
// absent membership is rejected.
func (s *VerifierService) RemoveVerifier(callerID uuid.UUID, role models.VerifierRoleType, verifierID uuid.UUID) error {
	owner, err := authority(s.db, models.ScopeVerifierRegistry)
	if err != nil {
		return err
	}
	if callerID != owner {
		return apperrors.Authorization("only the verifier registry owner may manage verifier membership")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.removeVerifierTx(tx, callerID, role, verifierID)
	})
}

// addVerifierTx applies one membership grant on an open transaction.
// The verifier administration facade reuses it for batch operations.
func (s *VerifierService) addVerifierTx(tx *gorm.DB, actorID uuid.UUID, role models.VerifierRoleType, verifierID uuid.UUID) error {
	if verifierID == uuid.Nil {
		return apperrors.Validation("verifier identity is empty")
	}
	if !validRole(role) {
		return apperrors.Validation("unknown verifier role %q", role)
	}

	var count int64
	if err := tx.Model(&models.VerifierRole{}).
		Where("verifier_id = ? AND role_type = ?", verifierID, role).
		Count(&count).Error; err != nil {
		return apperrors.Internal(err, "failed to check verifier membership")
	}
	if count > 0 {
		return apperrors.Validation("identity %s already holds the %s verifier role", verifierID, role)
	}

	membership := &models.VerifierRole{
		VerifierID: verifierID,
		RoleType:   role,
		AddedBy:    actorID,
	}
	if err := tx.Create(membership).Error; err != nil {
		return fmt.Errorf("failed to add verifier: %w", err)
	}

	return s.events.Emit(tx, componentVerifierRegistry, "verifier_added", verifierKey(verifierID), actorID,
		[]string{verifierID.String()}, models.JSONB{
			"verifier_id": verifierID.String(),
			"role":        string(role),
		})
}

func (s *VerifierService) removeVerifierTx(tx *gorm.DB, actorID uuid.UUID, role models.VerifierRoleType, verifierID uuid.UUID) error {
	if verifierID == uuid.Nil {
		return apperrors.Validation("verifier identity is empty")
	}
	if !validRole(role) {
		return apperrors.Validation("unknown verifier role %q", role)
	}

	result := tx.Where("verifier_id = ? AND role_type = ?", verifierID, role).
		Delete(&models.VerifierRole{})
	if result.Error != nil {
		return apperrors.Internal(result.Error, "failed to remove verifier")
	}
	if result.RowsAffected == 0 {
		return apperrors.Validation("identity %s does not hold the %s verifier role", verifierID, role)
	}

	return s.events.Emit(tx, componentVerifierRegistry, "verifier_removed", verifierKey(verifierID), actorID,
		[]string{verifierID.String()}, models.JSONB{
			"verifier_id": verifierID.String(),
			"role":        string(role),
		})
}

// IsVerifier reports role membership.
func (s *VerifierService) IsVerifier(verifierID uuid.UUID, role models.VerifierRoleType) (bool, error) {
	var count int64
	if err := s.db.Model(&models.VerifierRole{}).
		Where("verifier_id = ? AND role_type = ?", verifierID, role).
		Count(&count).Error; err != nil {
		return false, apperrors.Internal(err, "failed to check verifier membership")
	}
	return count > 0, nil
}

// VerifyBankStatus records the bank verifier's approval for a token.
func (s *VerifierService) VerifyBankStatus(callerID uuid.UUID, tokenID int64) (*models.TokenVerification, error) {
	return s.verifyStatus(callerID, tokenID, models.VerifierRoleBank)
}

// VerifyCourtStatus records the court verifier's approval for a token.
func (s *VerifierService) VerifyCourtStatus(callerID uuid.UUID, tokenID int64) (*models.TokenVerification, error) {
	return s.verifyStatus(callerID, tokenID, models.VerifierRoleCourt)
}

// VerifyTaxStatus records the tax verifier's approval for a token.
func (s *VerifierService) VerifyTaxStatus(callerID uuid.UUID, tokenID int64) (*models.TokenVerification, error) {
	return s.verifyStatus(callerID, tokenID, models.VerifierRoleTax)
}

// verifyStatus sets one role flag. Unlike the land-level flag this is
// not idempotent: re-approving the same role for the same token is an
// AlreadyVerified error. When the third flag lands, the derived
// is_verified flips and a completion event fires exactly once.
func (s *VerifierService) verifyStatus(callerID uuid.UUID, tokenID int64, role models.VerifierRoleType) (*models.TokenVerification, error) {
	if tokenID <= 0 {
		return nil, apperrors.Validation("token id must be positive")
	}

	isMember, err := s.IsVerifier(callerID, role)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperrors.Authorization("caller does not hold the %s verifier role", role)
	}

	var record models.TokenVerification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The record is implicitly created zero-valued on the first
		// verification call for a token.
		if err := tx.Where(models.TokenVerification{TokenID: tokenID}).
			FirstOrCreate(&record).Error; err != nil {
			return fmt.Errorf("failed to load verification record: %w", err)
		}

		var flagColumn string
		var alreadySet bool
		switch role {
		case models.VerifierRoleBank:
			flagColumn, alreadySet = "bank_status", record.BankStatus
			record.BankStatus = true
		case models.VerifierRoleCourt:
			flagColumn, alreadySet = "court_status", record.CourtStatus
			record.CourtStatus = true
		case models.VerifierRoleTax:
			flagColumn, alreadySet = "tax_status", record.TaxStatus
			record.TaxStatus = true
		}

		if alreadySet {
			return apperrors.AlreadyVerified("%s verification is already recorded for token %d", role, tokenID)
		}

		if err := tx.Model(&record).Update(flagColumn, true).Error; err != nil {
			return fmt.Errorf("failed to set %s flag: %w", flagColumn, err)
		}

		if err := s.events.Emit(tx, componentVerifierRegistry, fmt.Sprintf("%s_approved", role), tokenKey(tokenID), callerID, nil, models.JSONB{
			"token_id": tokenID,
			"role":     string(role),
		}); err != nil {
			return err
		}

		if record.BankStatus && record.CourtStatus && record.TaxStatus && !record.IsVerified {
			now := time.Now()
			record.IsVerified = true
			record.VerifiedAt = &now
			if err := tx.Model(&record).Updates(map[string]interface{}{
				"is_verified": true,
				"verified_at": now,
			}).Error; err != nil {
				return fmt.Errorf("failed to set is_verified: %w", err)
			}

			if err := s.events.Emit(tx, componentVerifierRegistry, "token_fully_verified", tokenKey(tokenID), callerID, nil, models.JSONB{
				"token_id": tokenID,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, wrapServiceError(err, "token verification failed")
	}

	return &record, nil
}

// IsLandVerified reports the derived full-verification flag; tokens
// never touched by any verifier read as false.
func (s *VerifierService) IsLandVerified(tokenID int64) (bool, error) {
	var record models.TokenVerification
	if err := s.db.First(&record, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperrors.Internal(err, "failed to load verification record")
	}
	return record.IsVerified, nil
}

// GetVerification returns the raw flag record for a token.
func (s *VerifierService) GetVerification(tokenID int64) (*models.TokenVerification, error) {
	var record models.TokenVerification
	if err := s.db.First(&record, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Never-touched tokens read as all-false.
			return &models.TokenVerification{TokenID: tokenID}, nil
		}
		return nil, apperrors.Internal(err, "failed to load verification record")
	}
	return &record, nil
}

func verifierKey(verifierID uuid.UUID) string {
	return "verifier:" + verifierID.String()
}

func tokenKey(tokenID int64) string {
	return fmt.Sprintf("token:%d", tokenID)
}
