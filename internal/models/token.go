// internal/models/token.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LandToken is an ownership token minted against a registered thram,
// plot, or a fraction of a plot's area. Tokens are immutable after
// mint and are never burned, so the audit trail of every token ever
// issued stays unbroken.
type LandToken struct {
	BaseModel
	TokenID     int64     `json:"token_id" gorm:"uniqueIndex;not null"`
	TokenType   TokenType `json:"token_type" gorm:"type:varchar(20);not null;index"`
	ThramNumber string    `json:"thram_number" gorm:"size:100;index"`
	PlotNumber  string    `json:"plot_number" gorm:"size:100;index"`
	ClaimedArea Area      `json:"claimed_area" gorm:"embedded;embeddedPrefix:claimed_"`
	MintedBy    uuid.UUID `json:"minted_by" gorm:"type:uuid;not null"`
	MintedAt    time.Time `json:"minted_at" gorm:"not null"`

	// Relationships
	Shares []TokenShare `json:"shares,omitempty" gorm:"foreignKey:LandTokenID"`
}

// TokenShare is one holder's slice of a token. A token may carry a
// different co-owner split than its backing parcel; the only invariant
// is that basis points sum to TotalBasisPoints at mint time.
type TokenShare struct {
	BaseModel
	LandTokenID uuid.UUID `json:"land_token_id" gorm:"type:uuid;not null;index"`
	TokenID     int64     `json:"token_id" gorm:"not null;index"`
	HolderID    uuid.UUID `json:"holder_id" gorm:"type:uuid;not null;index"`
	HolderDID   string    `json:"holder_did" gorm:"column:holder_did;size:255;not null"`
	BasisPoints int64     `json:"basis_points" gorm:"not null"`
}

// TokenVerification holds the three independent approval flags for a
// token. IsVerified is derived: true iff all three flags are true, and
// once true it never reverts.
type TokenVerification struct {
	BaseModel
	TokenID     int64      `json:"token_id" gorm:"uniqueIndex;not null"`
	BankStatus  bool       `json:"bank_status" gorm:"not null;default:false"`
	CourtStatus bool       `json:"court_status" gorm:"not null;default:false"`
	TaxStatus   bool       `json:"tax_status" gorm:"not null;default:false"`
	IsVerified  bool       `json:"is_verified" gorm:"not null;default:false"`
	VerifiedAt  *time.Time `json:"verified_at"`
}

// VerifierRole is one identity's membership in one of the three
// independent verifier sets.
type VerifierRole struct {
	BaseModel
	VerifierID uuid.UUID        `json:"verifier_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_verifier_role"`
	RoleType   VerifierRoleType `json:"role_type" gorm:"type:varchar(10);not null;uniqueIndex:idx_verifier_role"`
	AddedBy    uuid.UUID        `json:"added_by" gorm:"type:uuid;not null"`
}

// GovernanceAuthority is the explicit current-authority pointer for a
// governed scope, reassigned only by an authorized transfer.
type GovernanceAuthority struct {
	BaseModel
	Scope   GovernanceScope `json:"scope" gorm:"type:varchar(30);not null;uniqueIndex"`
	OwnerID uuid.UUID       `json:"owner_id" gorm:"type:uuid;not null"`
}

// TokenCounter is the single-row sequence backing token IDs. All three
// mint variants share it; IDs are strictly increasing from 1.
type TokenCounter struct {
	ID    uint  `gorm:"primary_key"`
	Value int64 `gorm:"not null;default:0"`
}
