// internal/models/event.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// LedgerEvent is the append-only notification record written in the
// same transaction as the mutation it describes. The auto-incremented
// sequence gives external indexers an immutable ordering; this is the
// sole read-side notification channel.
type LedgerEvent struct {
	Seq       int64          `json:"seq" gorm:"primary_key;autoIncrement"`
	Component string         `json:"component" gorm:"size:50;not null;index"`
	Operation string         `json:"operation" gorm:"size:50;not null;index"`
	EntityKey string         `json:"entity_key" gorm:"size:150;not null;index"`
	ActorID   uuid.UUID      `json:"actor_id" gorm:"type:uuid;not null;index"`
	Parties   pq.StringArray `json:"parties,omitempty" gorm:"type:text[]"`
	Payload   JSONB          `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
}
