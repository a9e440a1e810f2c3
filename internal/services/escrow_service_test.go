// internal/services/escrow_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/models"
)

type EscrowServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	registry  *RegistryService
	tokens    *TokenizationService
	verifiers *VerifierService
	escrow    *EscrowService
	approver  *models.User
	seller    *models.User
	buyer     *models.User
}

func (s *EscrowServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())

	events := NewEventService(s.db, nil)
	s.registry = NewRegistryService(s.db, events)
	s.tokens = NewTokenizationService(s.db, events, s.registry)
	s.verifiers = NewVerifierService(s.db, events)
	s.escrow = NewEscrowService(s.db, events, s.tokens, s.verifiers, nil, nil)

	s.approver = seedGovernance(s.T(), s.db)
	s.seller = createUser(s.T(), s.db, "dorji", models.UserTypeCitizen)
	s.buyer = createUser(s.T(), s.db, "pema", models.UserTypeCitizen)

	registerTestParcel(s.T(), s.registry, s.approver.ID, s.seller, "TH-300", "PL-300-1", 8)
}

// mintVerifiedToken mints a plot token for the seller and runs it
// through all three verifier approvals.
func (s *EscrowServiceTestSuite) mintVerifiedToken() int64 {
	token, err := s.tokens.MintPlotToken(s.approver.ID, "PL-300-1", singleShare(s.seller))
	s.Require().NoError(err)

	bank := createUser(s.T(), s.db, "bnb", models.UserTypeVerifier)
	court := createUser(s.T(), s.db, "court", models.UserTypeVerifier)
	tax := createUser(s.T(), s.db, "dra", models.UserTypeVerifier)

	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleBank, bank.ID))
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleCourt, court.ID))
	s.Require().NoError(s.verifiers.AddVerifier(s.approver.ID, models.VerifierRoleTax, tax.ID))

	_, err = s.verifiers.VerifyBankStatus(bank.ID, token.TokenID)
	s.Require().NoError(err)
	_, err = s.verifiers.VerifyCourtStatus(court.ID, token.TokenID)
	s.Require().NoError(err)
	_, err = s.verifiers.VerifyTaxStatus(tax.ID, token.TokenID)
	s.Require().NoError(err)

	return token.TokenID
}

func (s *EscrowServiceTestSuite) listAndVerify(tokenID, price int64) {
	_, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, price)
	s.Require().NoError(err)
	_, err = s.escrow.VerifyLandDetails(s.approver.ID, tokenID)
	s.Require().NoError(err)
}

func (s *EscrowServiceTestSuite) TestListRequiresFullVerification() {
	token, err := s.tokens.MintPlotToken(s.approver.ID, "PL-300-1", singleShare(s.seller))
	s.Require().NoError(err)

	_, err = s.escrow.ListLandForSale(s.seller.ID, token.TokenID, 500000)
	s.True(apperrors.IsCode(err, apperrors.CodeNotVerified))
}

func (s *EscrowServiceTestSuite) TestListRequiresHolder() {
	tokenID := s.mintVerifiedToken()

	_, err := s.escrow.ListLandForSale(s.buyer.ID, tokenID, 500000)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *EscrowServiceTestSuite) TestListTwiceFails() {
	tokenID := s.mintVerifiedToken()

	_, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 500000)
	s.Require().NoError(err)

	_, err = s.escrow.ListLandForSale(s.seller.ID, tokenID, 600000)
	s.True(apperrors.IsCode(err, apperrors.CodeAlreadyListed))
}

func (s *EscrowServiceTestSuite) TestSaleLifecycle() {
	tokenID := s.mintVerifiedToken()

	sale, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 500000)
	s.Require().NoError(err)
	s.Equal(models.SaleStatusPendingVerification, sale.Status)

	sale, err = s.escrow.VerifyLandDetails(s.approver.ID, tokenID)
	s.Require().NoError(err)
	s.Equal(models.SaleStatusVerified, sale.Status)

	sale, err = s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.Require().NoError(err)
	s.Equal(models.SaleStatusPaymentComplete, sale.Status)
	s.True(sale.PaymentReceived)

	s.Require().NoError(s.escrow.TransferOwnershipAfterPayment(s.buyer.ID, tokenID))

	// Custody moved to the buyer at full ownership.
	token, err := s.tokens.GetToken(tokenID)
	s.Require().NoError(err)
	s.Require().Len(token.Shares, 1)
	s.Equal(s.buyer.ID, token.Shares[0].HolderID)
	s.Equal(int64(models.TotalBasisPoints), token.Shares[0].BasisPoints)

	// The sale record is cleared.
	_, err = s.escrow.GetSale(tokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))

	// The seller's proceeds are claimable.
	balance, err := s.escrow.GetBalance(s.seller.ID)
	s.Require().NoError(err)
	s.Equal(int64(500000), balance)
}

func (s *EscrowServiceTestSuite) TestVerifySaleRequiresApprover() {
	tokenID := s.mintVerifiedToken()
	_, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 500000)
	s.Require().NoError(err)

	_, err = s.escrow.VerifyLandDetails(s.buyer.ID, tokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *EscrowServiceTestSuite) TestPaymentBeforeVerificationFails() {
	tokenID := s.mintVerifiedToken()
	_, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 500000)
	s.Require().NoError(err)

	_, err = s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))
}

func (s *EscrowServiceTestSuite) TestPaymentAmountMustMatch() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 499999})
	s.True(apperrors.IsCode(err, apperrors.CodePaymentMismatch))

	_, err = s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500001})
	s.True(apperrors.IsCode(err, apperrors.CodePaymentMismatch))
}

func (s *EscrowServiceTestSuite) TestDuplicatePaymentFails() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.Require().NoError(err)

	_, err = s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.True(apperrors.IsCode(err, apperrors.CodeDuplicatePayment))

	// The seller was credited exactly once.
	balance, err := s.escrow.GetBalance(s.seller.ID)
	s.Require().NoError(err)
	s.Equal(int64(500000), balance)
}

func (s *EscrowServiceTestSuite) TestTransferWithoutPaymentFails() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	err := s.escrow.TransferOwnershipAfterPayment(s.buyer.ID, tokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))
}

func (s *EscrowServiceTestSuite) TestDoubleTransferFails() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.Require().NoError(err)
	s.Require().NoError(s.escrow.TransferOwnershipAfterPayment(s.buyer.ID, tokenID))

	err = s.escrow.TransferOwnershipAfterPayment(s.buyer.ID, tokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))
}

func (s *EscrowServiceTestSuite) TestCancelThenPaymentFails() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	s.Require().NoError(s.escrow.CancelSale(s.seller.ID, tokenID))

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))
}

func (s *EscrowServiceTestSuite) TestCancelRequiresSeller() {
	tokenID := s.mintVerifiedToken()
	_, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 500000)
	s.Require().NoError(err)

	err = s.escrow.CancelSale(s.buyer.ID, tokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *EscrowServiceTestSuite) TestCancelAfterPaymentFails() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.Require().NoError(err)

	err = s.escrow.CancelSale(s.seller.ID, tokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeAlreadyComplete))
}

func (s *EscrowServiceTestSuite) TestRelistAfterCancel() {
	tokenID := s.mintVerifiedToken()
	_, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 500000)
	s.Require().NoError(err)
	s.Require().NoError(s.escrow.CancelSale(s.seller.ID, tokenID))

	sale, err := s.escrow.ListLandForSale(s.seller.ID, tokenID, 450000)
	s.Require().NoError(err)
	s.Equal(int64(450000), sale.Price)
}

func (s *EscrowServiceTestSuite) TestWithdraw() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.Require().NoError(err)

	var paidOut int64
	s.escrow.payoutFunc = func(user *models.User, amount int64) (string, error) {
		paidOut = amount
		return "po_test", nil
	}

	amount, err := s.escrow.Withdraw(s.seller.ID)
	s.Require().NoError(err)
	s.Equal(int64(500000), amount)
	s.Equal(int64(500000), paidOut)

	// The balance is spent; withdrawing again fails.
	balance, err := s.escrow.GetBalance(s.seller.ID)
	s.Require().NoError(err)
	s.Zero(balance)

	_, err = s.escrow.Withdraw(s.seller.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeNoFunds))
}

func (s *EscrowServiceTestSuite) TestWithdrawWithoutFundsFails() {
	_, err := s.escrow.Withdraw(s.buyer.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeNoFunds))
}

func (s *EscrowServiceTestSuite) TestFailedPayoutRestoresBalance() {
	tokenID := s.mintVerifiedToken()
	s.listAndVerify(tokenID, 500000)

	_, err := s.escrow.MakePayment(s.buyer.ID, tokenID, &MakePaymentRequest{Amount: 500000})
	s.Require().NoError(err)

	s.escrow.payoutFunc = func(user *models.User, amount int64) (string, error) {
		return "", errors.New("gateway unavailable")
	}

	_, err = s.escrow.Withdraw(s.seller.ID)
	s.True(apperrors.IsCode(err, apperrors.CodeTransferFailed))

	// The funds stayed claimable.
	balance, err := s.escrow.GetBalance(s.seller.ID)
	s.Require().NoError(err)
	s.Equal(int64(500000), balance)

	s.escrow.payoutFunc = func(user *models.User, amount int64) (string, error) {
		return "po_retry", nil
	}

	amount, err := s.escrow.Withdraw(s.seller.ID)
	s.Require().NoError(err)
	s.Equal(int64(500000), amount)
}

func (s *EscrowServiceTestSuite) TestUnknownTokenHasNoSale() {
	_, err := s.escrow.GetSale(404)
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))
}

func TestEscrowServiceSuite(t *testing.T) {
	suite.Run(t, new(EscrowServiceTestSuite))
}
