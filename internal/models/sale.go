// internal/models/sale.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sale is the transient escrow record for one token's sale lifecycle.
// Unlike parcels and tokens it is hard-deleted on completed transfer
// or cancellation.
type Sale struct {
	BaseModel
	TokenID          int64      `json:"token_id" gorm:"uniqueIndex;not null"`
	SellerID         uuid.UUID  `json:"seller_id" gorm:"type:uuid;not null;index"`
	BuyerID          *uuid.UUID `json:"buyer_id" gorm:"type:uuid;index"`
	Price            int64      `json:"price" gorm:"not null"`
	Status           SaleStatus `json:"status" gorm:"type:varchar(25);not null;default:'not_for_sale';index"`
	PaymentReceived  bool       `json:"payment_received" gorm:"not null;default:false"`
	PaymentReference string     `json:"payment_reference,omitempty" gorm:"size:255"`
	ListedAt         time.Time  `json:"listed_at" gorm:"not null"`
	PaidAt           *time.Time `json:"paid_at"`
}

// WithdrawalBalance accumulates a seller's credit from completed sales
// until an explicit withdrawal zeroes it. Amounts are int64 minor
// units (chetrum); the balance never goes negative.
type WithdrawalBalance struct {
	BaseModel
	HolderID uuid.UUID `json:"holder_id" gorm:"type:uuid;not null;uniqueIndex"`
	Amount   int64     `json:"amount" gorm:"not null;default:0"`
}
