// internal/services/tokenization_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/models"
)

type TokenizationServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	registry *RegistryService
	tokens   *TokenizationService
	approver *models.User
	owner    *models.User
}

func (s *TokenizationServiceTestSuite) SetupTest() {
	s.db = newTestDB(s.T())

	events := NewEventService(s.db, nil)
	s.registry = NewRegistryService(s.db, events)
	s.tokens = NewTokenizationService(s.db, events, s.registry)
	s.approver = seedGovernance(s.T(), s.db)
	s.owner = createUser(s.T(), s.db, "dorji", models.UserTypeCitizen)

	registerTestParcel(s.T(), s.registry, s.approver.ID, s.owner, "TH-200", "PL-200-1", 10)
	registerTestParcel(s.T(), s.registry, s.approver.ID, s.owner, "TH-200", "PL-200-2", 4)
}

func (s *TokenizationServiceTestSuite) TestTokenIDsAreSequential() {
	t1, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-1", singleShare(s.owner))
	s.Require().NoError(err)
	s.Equal(int64(1), t1.TokenID)

	t2, err := s.tokens.MintThramToken(s.approver.ID, "TH-200", singleShare(s.owner))
	s.Require().NoError(err)
	s.Equal(int64(2), t2.TokenID)

	t3, err := s.tokens.MintFractionToken(s.approver.ID, "PL-200-1", 1, 0, singleShare(s.owner))
	s.Require().NoError(err)
	s.Equal(int64(3), t3.TokenID)
}

func (s *TokenizationServiceTestSuite) TestMintThramTokenSumsParcelAreas() {
	token, err := s.tokens.MintThramToken(s.approver.ID, "TH-200", singleShare(s.owner))
	s.Require().NoError(err)

	s.Equal(models.TokenTypeThram, token.TokenType)
	s.Equal("TH-200", token.ThramNumber)
	s.Equal(models.Area{Acres: 14, Decimals: 0}, token.ClaimedArea)
	s.Len(token.Shares, 1)
}

func (s *TokenizationServiceTestSuite) TestMintThramTokenUnknownThram() {
	_, err := s.tokens.MintThramToken(s.approver.ID, "TH-404", singleShare(s.owner))
	s.True(apperrors.IsCode(err, apperrors.CodeNotFound))
}

func (s *TokenizationServiceTestSuite) TestMintPlotToken() {
	token, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-2", singleShare(s.owner))
	s.Require().NoError(err)

	s.Equal(models.TokenTypePlot, token.TokenType)
	s.Equal("PL-200-2", token.PlotNumber)
	s.Equal(models.Area{Acres: 4, Decimals: 0}, token.ClaimedArea)
}

func (s *TokenizationServiceTestSuite) TestMintRequiresApprover() {
	_, err := s.tokens.MintPlotToken(s.owner.ID, "PL-200-1", singleShare(s.owner))
	s.True(apperrors.IsCode(err, apperrors.CodeAuthorization))
}

func (s *TokenizationServiceTestSuite) TestMintRejectsBadShareSum() {
	shares := singleShare(s.owner)
	shares.BasisPoints = []int64{5000}

	_, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-1", shares)
	s.True(apperrors.IsCode(err, apperrors.CodeValidation))
}

func (s *TokenizationServiceTestSuite) TestMintFractionTokenDeductsArea() {
	token, err := s.tokens.MintFractionToken(s.approver.ID, "PL-200-1", 3, 25, singleShare(s.owner))
	s.Require().NoError(err)
	s.Equal(models.Area{Acres: 3, Decimals: 25}, token.ClaimedArea)

	parcel, err := s.registry.GetLandByPlot("PL-200-1")
	s.Require().NoError(err)
	s.Equal(models.Area{Acres: 6, Decimals: 75}, parcel.AvailableArea)
}

func (s *TokenizationServiceTestSuite) TestMintFractionTokenInsufficientArea() {
	_, err := s.tokens.MintFractionToken(s.approver.ID, "PL-200-2", 5, 0, singleShare(s.owner))
	s.True(apperrors.IsCode(err, apperrors.CodeInsufficientArea))

	// Neither a token nor a deduction exists.
	var tokenCount int64
	s.Require().NoError(s.db.Model(&models.LandToken{}).Count(&tokenCount).Error)
	s.Zero(tokenCount)

	parcel, err := s.registry.GetLandByPlot("PL-200-2")
	s.Require().NoError(err)
	s.Equal(models.Area{Acres: 4, Decimals: 0}, parcel.AvailableArea)
}

func (s *TokenizationServiceTestSuite) TestMintFractionExhaustsThenFails() {
	_, err := s.tokens.MintFractionToken(s.approver.ID, "PL-200-2", 4, 0, singleShare(s.owner))
	s.Require().NoError(err)

	_, err = s.tokens.MintFractionToken(s.approver.ID, "PL-200-2", 0, 1, singleShare(s.owner))
	s.True(apperrors.IsCode(err, apperrors.CodeInsufficientArea))
}

func (s *TokenizationServiceTestSuite) TestGetToken() {
	minted, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-1", singleShare(s.owner))
	s.Require().NoError(err)

	token, err := s.tokens.GetToken(minted.TokenID)
	s.Require().NoError(err)
	s.Equal(minted.TokenID, token.TokenID)
	s.Len(token.Shares, 1)
	s.Equal(s.owner.ID, token.Shares[0].HolderID)

	_, err = s.tokens.GetToken(0)
	s.True(apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = s.tokens.GetToken(42)
	s.True(apperrors.IsCode(err, apperrors.CodeNotFound))
}

func (s *TokenizationServiceTestSuite) TestListTokens() {
	_, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-1", singleShare(s.owner))
	s.Require().NoError(err)
	_, err = s.tokens.MintFractionToken(s.approver.ID, "PL-200-1", 2, 0, singleShare(s.owner))
	s.Require().NoError(err)

	byPlot, err := s.tokens.GetTokensByPlot("PL-200-1")
	s.Require().NoError(err)
	s.Len(byPlot, 2)
	s.Less(byPlot[0].TokenID, byPlot[1].TokenID)

	byThram, err := s.tokens.GetTokensByThram("TH-200")
	s.Require().NoError(err)
	s.Len(byThram, 2)

	empty, err := s.tokens.GetTokensByPlot("PL-404")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *TokenizationServiceTestSuite) TestIsHolder() {
	minted, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-1", singleShare(s.owner))
	s.Require().NoError(err)

	holds, err := s.tokens.IsHolder(minted.TokenID, s.owner.ID)
	s.Require().NoError(err)
	s.True(holds)

	holds, err = s.tokens.IsHolder(minted.TokenID, s.approver.ID)
	s.Require().NoError(err)
	s.False(holds)
}

func (s *TokenizationServiceTestSuite) TestBurnTokenAlwaysFails() {
	minted, err := s.tokens.MintPlotToken(s.approver.ID, "PL-200-1", singleShare(s.owner))
	s.Require().NoError(err)

	err = s.tokens.BurnToken(s.approver.ID, minted.TokenID)
	s.True(apperrors.IsCode(err, apperrors.CodeInvalidState))

	// The token is still there.
	_, err = s.tokens.GetToken(minted.TokenID)
	s.Require().NoError(err)
}

func TestTokenizationServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenizationServiceTestSuite))
}
