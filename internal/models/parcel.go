// internal/models/parcel.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Parcel struct {
	BaseModel
	ThramNumber   string         `json:"thram_number" gorm:"size:100;not null;index"`
	PlotNumber    string         `json:"plot_number" gorm:"size:100;not null;uniqueIndex"`
	Location      string         `json:"location" gorm:"size:255;not null"`
	TotalArea     Area           `json:"total_area" gorm:"embedded;embeddedPrefix:total_"`
	AvailableArea Area           `json:"available_area" gorm:"embedded;embeddedPrefix:available_"`
	OwnershipType OwnershipType  `json:"ownership_type" gorm:"type:varchar(20);not null"`
	Verified      bool           `json:"verified" gorm:"not null;default:false"`
	RegisteredBy  uuid.UUID      `json:"registered_by" gorm:"type:uuid;not null"`
	RegisteredAt  time.Time      `json:"registered_at" gorm:"not null"`
	DocumentURLs  pq.StringArray `json:"document_urls,omitempty" gorm:"type:text[]"`

	// Relationships
	Shares []ParcelShare `json:"shares,omitempty" gorm:"foreignKey:ParcelID"`
}

// ParcelShare records one co-owner's slice of a parcel. Basis points
// across a parcel's shares sum to exactly TotalBasisPoints.
type ParcelShare struct {
	BaseModel
	ParcelID    uuid.UUID `json:"parcel_id" gorm:"type:uuid;not null;index"`
	HolderID    uuid.UUID `json:"holder_id" gorm:"type:uuid;not null;index"`
	HolderDID   string    `json:"holder_did" gorm:"column:holder_did;size:255;not null;index"`
	BasisPoints int64     `json:"basis_points" gorm:"not null"`
}
