// internal/services/event_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/metrics"
	"github.com/druklands/landledger/internal/models"
	"github.com/druklands/landledger/internal/utils"
)

// EventService appends ledger events. Every state-mutating operation
// emits exactly one event per observable change, written on the same
// transaction as the mutation so an event exists iff the change
// committed.
type EventService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewEventService(db *gorm.DB, m *metrics.Metrics) *EventService {
	return &EventService{
		db:      db,
		metrics: m,
	}
}

// Emit writes one event on tx. The caller owns the transaction; a
// rolled-back mutation takes its events with it.
func (s *EventService) Emit(tx *gorm.DB, component, operation, entityKey string, actor uuid.UUID, parties []string, payload models.JSONB) error {
	event := &models.LedgerEvent{
		Component: component,
		Operation: operation,
		EntityKey: entityKey,
		ActorID:   actor,
		Parties:   pq.StringArray(parties),
		Payload:   payload,
	}

	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to emit %s.%s event: %w", component, operation, err)
	}

	s.metrics.IncrementEvent(component, operation)
	return nil
}

// GetByEntity lists events for one entity key in sequence order.
func (s *EventService) GetByEntity(entityKey string, params utils.PaginationParams) ([]models.LedgerEvent, int64, error) {
	query := s.db.Model(&models.LedgerEvent{}).Where("entity_key = ?", entityKey)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger events: %w", err)
	}

	var events []models.LedgerEvent
	if err := utils.ApplyPagination(query.Order("seq ASC"), params).Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger events: %w", err)
	}

	return events, total, nil
}
