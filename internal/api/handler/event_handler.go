package handler

import (
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/api/response"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/gin-gonic/gin"
)

type CreateEventRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type UpdateEventRequest struct {
	Title     *string    `json:"title"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Status    *string    `json:"status"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

// EventHandler слоты календаря текущего пользователя
type EventHandler struct {
	slots SlotStore
}

func NewEventHandler(slots SlotStore) *EventHandler {
	return &EventHandler{slots: slots}
}

// ListEvents GET /api/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slots, err := h.slots.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if slots == nil {
		slots = []*model.Slot{}
	}

	response.OK(c, slots)
}

// CreateEvent POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.slots.CreateSlot(c.Request.Context(), userID, req.Title, req.StartTime, req.EndTime)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, slot)
}

// GetEvent GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.slots.GetSlot(c.Request.Context(), id, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, slot)
}

// UpdateEvent PUT /api/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	patch := model.SlotPatch{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if req.Status != nil {
		status, err := model.ParseSlotStatus(*req.Status)
		if err != nil {
			response.FromError(c, err)
			return
		}
		patch.Status = &status
	}

	slot, err := h.slots.UpdateSlot(c.Request.Context(), id, userID, patch)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, slot)
}

// SetEventStatus PATCH /api/events/:id/status
func (h *EventHandler) SetEventStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	status, err := model.ParseSlotStatus(req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.slots.SetStatus(c.Request.Context(), id, userID, status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, slot)
}

// DeleteEvent DELETE /api/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.slots.DeleteSlot(c.Request.Context(), id, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"id": id})
}
