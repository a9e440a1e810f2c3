// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeApprover UserType = "approver"
	UserTypeVerifier UserType = "verifier"
	UserTypeCitizen  UserType = "citizen"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type OwnershipType string

const (
	OwnershipSingle        OwnershipType = "single"
	OwnershipJoint         OwnershipType = "joint"
	OwnershipHouseholdHead OwnershipType = "household_head"
)

type TokenType string

const (
	TokenTypeThram    TokenType = "thram"
	TokenTypePlot     TokenType = "plot"
	TokenTypeFraction TokenType = "fraction"
)

type VerifierRoleType string

const (
	VerifierRoleBank  VerifierRoleType = "bank"
	VerifierRoleCourt VerifierRoleType = "court"
	VerifierRoleTax   VerifierRoleType = "tax"
)

type SaleStatus string

const (
	SaleStatusNotForSale          SaleStatus = "not_for_sale"
	SaleStatusPendingVerification SaleStatus = "pending_verification"
	SaleStatusVerified            SaleStatus = "verified"
	SaleStatusPaymentComplete     SaleStatus = "payment_complete"
)

// Governance scopes for the current-authority pointers.
type GovernanceScope string

const (
	ScopeVerifierRegistry GovernanceScope = "verifier_registry"
	ScopeVerifierAdmin    GovernanceScope = "verifier_admin"
)

// Ownership percentages are expressed in basis points; a parcel's or
// token's share list must always sum to exactly TotalBasisPoints.
const TotalBasisPoints = 10000
