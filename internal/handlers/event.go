// internal/handlers/event.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/druklands/landledger/internal/services"
	"github.com/druklands/landledger/internal/utils"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// GET /events?key=
func (h *EventHandler) ListByEntity(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		utils.BadRequestResponse(c, "key query parameter is required", nil)
		return
	}

	params := utils.GetPaginationParams(c)
	events, total, err := h.eventService.GetByEntity(key, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(events, total, params))
}
