// internal/services/verifier_admin_service.go
package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/models"
)

const componentVerifierAdmin = "verifier_admin"

// VerifierAdminService is the governance facade over the verifier
// registry: batch membership changes and ownership transfer chains.
type VerifierAdminService struct {
	db        *gorm.DB
	events    *EventService
	verifiers *VerifierService
}

// NewVerifierAdminService wires the facade. The bootstrap check is a
// one-time setup precondition: the verifier registry's governance
// owner must be the initializer identity, otherwise the facade would
// administer a registry it has no authority over.
func NewVerifierAdminService(db *gorm.DB, events *EventService, verifiers *VerifierService, initializerID uuid.UUID) (*VerifierAdminService, error) {
	registryOwner, err := authority(db, models.ScopeVerifierRegistry)
	if err != nil {
		return nil, err
	}

	if registryOwner != initializerID {
		return nil, apperrors.Setup("verifier registry is owned by %s, not the initializer %s", registryOwner, initializerID)
	}

	return &VerifierAdminService{
		db:        db,
		events:    events,
		verifiers: verifiers,
	}, nil
}

// BatchAddVerifiers grants one role per entry, all-or-nothing: a
// failure on any entry rolls back the whole batch.
func (s *VerifierAdminService) BatchAddVerifiers(callerID uuid.UUID, verifierIDs []uuid.UUID, roles []models.VerifierRoleType) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}

	if len(verifierIDs) != len(roles) {
		return apperrors.Validation("identities and roles must have the same length")
	}
	if len(verifierIDs) == 0 {
		return apperrors.Validation("batch is empty")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range verifierIDs {
			if err := s.verifiers.addVerifierTx(tx, callerID, roles[i], verifierIDs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapNilServiceError(err, "batch verifier add failed")
}

// BatchRemoveVerifiers revokes one role per entry, all-or-nothing.
func (s *VerifierAdminService) BatchRemoveVerifiers(callerID uuid.UUID, verifierIDs []uuid.UUID, roles []models.VerifierRoleType) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}

	if len(verifierIDs) != len(roles) {
		return apperrors.Validation("identities and roles must have the same length")
	}
	if len(verifierIDs) == 0 {
		return apperrors.Validation("batch is empty")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range verifierIDs {
			if err := s.verifiers.removeVerifierTx(tx, callerID, roles[i], verifierIDs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapNilServiceError(err, "batch verifier remove failed")
}

// TransferOwnership reassigns the current-authority pointer for a
// governed scope. Only the scope's current owner may delegate it.
func (s *VerifierAdminService) TransferOwnership(callerID uuid.UUID, scope models.GovernanceScope, newOwnerID uuid.UUID) error {
	if scope != models.ScopeVerifierRegistry && scope != models.ScopeVerifierAdmin {
		return apperrors.Validation("unknown governance scope %q", scope)
	}
	if newOwnerID == uuid.Nil {
		return apperrors.Validation("new owner identity is empty")
	}

	currentOwner, err := authority(s.db, scope)
	if err != nil {
		return err
	}
	if callerID != currentOwner {
		return apperrors.Authorization("only the current %s owner may transfer ownership", scope)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GovernanceAuthority{}).
			Where("scope = ?", scope).
			Update("owner_id", newOwnerID).Error; err != nil {
			return apperrors.Internal(err, "failed to reassign authority")
		}

		return s.events.Emit(tx, componentVerifierAdmin, "ownership_transferred", "governance:"+string(scope), callerID,
			[]string{newOwnerID.String()}, models.JSONB{
				"scope":          string(scope),
				"previous_owner": currentOwner.String(),
				"new_owner":      newOwnerID.String(),
			})
	})
	return wrapNilServiceError(err, "ownership transfer failed")
}

func (s *VerifierAdminService) requireAdmin(callerID uuid.UUID) error {
	adminOwner, err := authority(s.db, models.ScopeVerifierAdmin)
	if err != nil {
		return err
	}
	if callerID != adminOwner {
		return apperrors.Authorization("only the verifier administration owner may perform batch operations")
	}
	return nil
}

func wrapNilServiceError(err error, message string) error {
	if err == nil {
		return nil
	}
	return wrapServiceError(err, message)
}
