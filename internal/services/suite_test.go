// internal/services/suite_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/druklands/landledger/internal/database"
	"github.com/druklands/landledger/internal/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
// A named memory DSN plus a single connection keeps the database alive
// and private for the duration of one test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@test.bt",
		UserType: userType,
		Status:   models.UserStatusActive,
		DID:      "did:landledger:" + username,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedGovernance creates the approver account, the counter row, and
// the governance pointers the way first start does.
func seedGovernance(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	approver := createUser(t, db, "approver", models.UserTypeApprover)
	require.NoError(t, db.Create(&models.TokenCounter{ID: 1, Value: 0}).Error)

	for _, scope := range []models.GovernanceScope{models.ScopeVerifierRegistry, models.ScopeVerifierAdmin} {
		require.NoError(t, db.Create(&models.GovernanceAuthority{Scope: scope, OwnerID: approver.ID}).Error)
	}

	return approver
}

// singleShare builds a one-owner share vector at full ownership.
func singleShare(owner *models.User) *MintSharesRequest {
	return &MintSharesRequest{
		Owners:      []uuid.UUID{owner.ID},
		DIDs:        []string{owner.DID},
		BasisPoints: []int64{models.TotalBasisPoints},
	}
}

func registerTestParcel(t *testing.T, registry *RegistryService, approverID uuid.UUID, owner *models.User, thram, plot string, acres int64) *models.Parcel {
	t.Helper()

	parcel, err := registry.RegisterLand(approverID, &RegisterLandRequest{
		ThramNumber:   thram,
		PlotNumber:    plot,
		Location:      "Thimphu",
		AreaAcres:     acres,
		AreaDecimals:  0,
		Owners:        []uuid.UUID{owner.ID},
		DIDs:          []string{owner.DID},
		BasisPoints:   []int64{models.TotalBasisPoints},
		OwnershipType: models.OwnershipSingle,
	})
	require.NoError(t, err)
	return parcel
}

func countEvents(t *testing.T, db *gorm.DB, component, operation string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.LedgerEvent{}).
		Where("component = ? AND operation = ?", component, operation).
		Count(&count).Error)
	return count
}
