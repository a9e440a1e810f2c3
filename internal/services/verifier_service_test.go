// internal/services/verifier_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/models"
)

type VerifierServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	verifiers *VerifierService
	approver  *models.User
	bank      *models.User
	court     *models.User
	tax       *models.User
}

func (s *VerifierServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.verifiers = NewVerifierService(s.db, NewEventService(s.db, nil))
	s.approver = seedGovernance(s.T(), s.db)

	s.bank = createUser(s.T(), s.db, "bnb", models.UserTypeVerifier)
	s.court = createUser(s.T(), s.db, "court", models.UserTypeVerifier)
	s.tax = createUser(s.T(), s.db, "dra", models.UserTypeVerifier)
}

func (s *VerifierServiceTestSuite) grantAllRoles() {
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID))
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleCourt, s.court.ID))
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleTax, s.tax.ID))
}

func (s *VerifierServiceTestSuite) TestAddAndRemoveVerifier() {
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID))

	isMember, err := s.verifiers.IsVerifier(s.bank.ID, models.VerifierRoleBank)
	s.Require().NoError(err)
	s.True(isMember)

	// Membership is per role.
	isMember, err = s.verifiers.IsVerifier(s.bank.ID, models.VerifierRoleCourt)
	s.Require().NoError(err)
	s.False(isMember)

	s.Require().NoError(s.verifiers.RemoveVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID))

	isMember, err = s.verifiers.IsVerifier(s.bank.ID, models.VerifierRoleBank)
	s.Require().NoError(err)
	s.False(isMember)
}

func (s *VerifierServiceTestSuite) TestAddVerifierRequiresRegistryOwner() {
	err := s.verifiers.AddVerifier(s.bank.ID, models.VerifierRoleBank, s.bank.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *VerifierServiceTestSuite) TestAddVerifierRejectsRedundantGrant() {
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID))

	err := s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func (s *VerifierServiceTestSuite) TestRemoveVerifierRejectsAbsentMembership() {
	err := s.verifiers.RemoveVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func (s *VerifierServiceTestSuite) TestAddVerifierRejectsUnknownRole() {
	err := s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleType("police"), s.bank.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func (s *VerifierServiceTestSuite) TestVerifyStatusRequiresRole() {
	_, err := s.verifiers.VerifyBankStatus(s.bank.ID, 1)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *VerifierServiceTestSuite) TestFullVerificationAnyOrder() {
	s.grantAllRoles()

	// Tax first, then bank, then court.
	record, err := s.verifiers.VerifyTaxStatus(s.tax.ID, 7)
	s.Require().NoError(err)
	s.True(record.TaxStatus)
	s.False(record.IsVerified)

	record, err = s.verifiers.VerifyBankStatus(s.bank.ID, 7)
	s.Require().NoError(err)
	s.False(record.IsVerified)

	record, err = s.verifiers.VerifyCourtStatus(s.court.ID, 7)
	s.Require().NoError(err)
	s.True(record.IsVerified)
	s.NotNil(record.VerifiedAt)

	verified, err := s.verifiers.IsLandVerified(7)
	s.Require().NoError(err)
	s.True(verified)

	// Completion fires exactly once.
	s.Equal(int64(1), countEvents(s.T(), s.db, "verifier_registry", "token_fully_verified"))
}

func (s *VerifierServiceTestSuite) TestReVerificationFails() {
	s.grantAllRoles()

	_, err := s.verifiers.VerifyBankStatus(s.bank.ID, 3)
	s.Require().NoError(err)

	_, err = s.verifiers.VerifyBankStatus(s.bank.ID, 3)
	s.True(apperrors.IsCode(err, apperrors.CodeAlreadyVerified))

	// The failed re-verification left the record intact.
	record, err := s.verifiers.GetVerification(3)
	s.Require().NoError(err)
	s.True(record.BankStatus)
	s.False(record.IsVerified)
}

func (s *VerifierServiceTestSuite) TestPartialVerificationIsNotVerified() {
	s.grantAllRoles()

	_, err := s.verifiers.VerifyBankStatus(s.bank.ID, 5)
	s.Require().NoError(err)
	_, err = s.verifiers.VerifyCourtStatus(s.court.ID, 5)
	s.Require().NoError(err)

	verified, err := s.verifiers.IsLandVerified(5)
	s.Require().NoError(err)
	s.False(verified)
}

func (s *VerifierServiceTestSuite) TestUntouchedTokenReadsUnverified() {
	verified, err := s.verifiers.IsLandVerified(99)
	s.Require().NoError(err)
	s.False(verified)

	record, err := s.verifiers.GetVerification(99)
	s.Require().NoError(err)
	s.False(record.BankStatus)
	s.False(record.CourtStatus)
	s.False(record.TaxStatus)
	s.False(record.IsVerified)
}

func TestVerifierServiceSuite(t *testing.T) {
	suite.Run(t, new(VerifierServiceTestSuite))
}

type VerifierAdminTestSuite struct {
	suite.Suite
	db        *gorm.DB
	events    *EventService
	verifiers *VerifierService
	admin     *VerifierAdminService
	approver  *models.User
	bank      *models.User
	court     *models.User
}

func (s *VerifierAdminTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.events = NewEventService(s.db, nil)
	s.verifiers = NewVerifierService(s.db, s.events)
	s.approver = seedGovernance(s.T(), s.db)

	admin, err := NewVerifierAdminService(s.db, s.events, s.verifiers, s.approver.ID)
	s.Require().NoError(err)
	s.admin = admin

	s.bank = createUser(s.T(), s.db, "bnb", models.UserTypeVerifier)
	s.court = createUser(s.T(), s.db, "court", models.UserTypeVerifier)
}

func (s *VerifierAdminTestSuite) TestBootstrapRejectsForeignInitializer() {
	stranger := createUser(s.T(), s.db, "stranger", models.UserTypeCitizen)

	_, err := NewVerifierAdminService(s.db, s.events, s.verifiers, stranger.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeSetup))
}

func (s *VerifierAdminTestSuite) TestBatchAddVerifiers() {
	err := s.admin.BatchAddVerifiers(s.approver.ID,
		[]uuid.UUID{s.bank.ID, s.court.ID},
		[]models.VerifierRoleType{models.VerifierRoleBank, models.VerifierRoleCourt})
	s.Require().NoError(err)

	for _, check := range []struct {
		id   uuid.UUID
		role models.VerifierRoleType
	}{
		{s.bank.ID, models.VerifierRoleBank},
		{s.court.ID, models.VerifierRoleCourt},
	} {
		isMember, err := s.verifiers.IsVerifier(check.id, check.role)
		s.Require().NoError(err)
		s.True(isMember)
	}
}

func (s *VerifierAdminTestSuite) TestBatchAddIsAllOrNothing() {
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleCourt, s.court.ID))

	// Second entry is a redundant grant; the whole batch rolls back.
	err := s.admin.BatchAddVerifiers(s.approver.ID,
		[]uuid.UUID{s.bank.ID, s.court.ID},
		[]models.VerifierRoleType{models.VerifierRoleBank, models.VerifierRoleCourt})
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))

	isMember, err := s.verifiers.IsVerifier(s.bank.ID, models.VerifierRoleBank)
	s.Require().NoError(err)
	s.False(isMember)
}

func (s *VerifierAdminTestSuite) TestBatchRemoveIsAllOrNothing() {
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID))

	// Court entry was never granted; the bank removal rolls back too.
	err := s.admin.BatchRemoveVerifiers(s.approver.ID,
		[]uuid.UUID{s.bank.ID, s.court.ID},
		[]models.VerifierRoleType{models.VerifierRoleBank, models.VerifierRoleCourt})
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))

	isMember, err := s.verifiers.IsVerifier(s.bank.ID, models.VerifierRoleBank)
	s.Require().NoError(err)
	s.True(isMember)
}

func (s *VerifierAdminTestSuite) TestBatchRejectsLengthMismatch() {
	err := s.admin.BatchAddVerifiers(s.approver.ID,
		[]uuid.UUID{s.bank.ID, s.court.ID},
		[]models.VerifierRoleType{models.VerifierRoleBank})
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func (s *VerifierAdminTestSuite) TestBatchRequiresAdminOwner() {
	err := s.admin.BatchAddVerifiers(s.bank.ID,
		[]uuid.UUID{s.bank.ID},
		[]models.VerifierRoleType{models.VerifierRoleBank})
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *VerifierAdminTestSuite) TestTransferRegistryOwnership() {
	newOwner := createUser(s.T(), s.db, "successor", models.UserTypeCitizen)

	s.Require().NoError(s.admin.TransferOwnership(s.approver.ID, models.ScopeVerifierRegistry, newOwner.ID))

	// The old owner lost direct membership control.
	err := s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, s.bank.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))

	// The new owner has it.
	s.Require().NoError(s.verifiers.AddVerifier(newOwner.ID, models.VerifierRoleBank, s.bank.ID))
}

func (s *VerifierAdminTestSuite) TestTransferOwnershipRequiresCurrentOwner() {
	newOwner := createUser(s.T(), s.db, "successor", models.UserTypeCitizen)

	err := s.admin.TransferOwnership(s.bank.ID, models.ScopeVerifierAdmin, newOwner.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *VerifierAdminTestSuite) TestTransferOwnershipRejectsUnknownScope() {
	err := s.admin.TransferOwnership(s.approver.ID, models.GovernanceScope("parcels"), s.bank.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestVerifierAdminSuite(t *testing.T) {
	suite.Run(t, new(VerifierAdminTestSuite))
}
