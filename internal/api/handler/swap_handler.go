package handler

import (
	"github.com/Freeeeeet/slot_swapper/internal/api/response"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/gin-gonic/gin"
)

type SwapRequestBody struct {
	MySlotID    int64 `json:"mySlotId"`
	TheirSlotID int64 `json:"theirSlotId"`
}

type SwapResponseBody struct {
	Accept *bool `json:"accept"`
}

// SwapHandler рынок слотов и заявки на обмен
type SwapHandler struct {
	slots SlotStore
	swaps SwapEngine
}

func NewSwapHandler(slots SlotStore, swaps SwapEngine) *SwapHandler {
	return &SwapHandler{slots: slots, swaps: swaps}
}

// ListSwappable GET /api/swaps/swappable-slots
func (h *SwapHandler) ListSwappable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slots := []*model.Slot{}
	for slot, err := range h.slots.ListSwappable(c.Request.Context(), userID) {
		if err != nil {
			response.FromError(c, err)
			return
		}
		slots = append(slots, slot)
	}

	response.OK(c, slots)
}

// RequestSwap POST /api/swaps/request
func (h *SwapHandler) RequestSwap(c *gin.Context) {
	var req SwapRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.MySlotID <= 0 || req.TheirSlotID <= 0 {
		response.BadRequest(c, "mySlotId and theirSlotId are required")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swaps.RequestSwap(c.Request.Context(), userID, req.MySlotID, req.TheirSlotID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, swap)
}

// ListRequests GET /api/swaps/requests
func (h *SwapHandler) ListRequests(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	requests, err := h.swaps.ListRequests(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, requests)
}

// GetRequest GET /api/swaps/requests/:requestId
func (h *SwapHandler) GetRequest(c *gin.Context) {
	requestID, ok := pathID(c, "requestId")
	if !ok {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swaps.GetRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, swap)
}

// Respond POST /api/swaps/response/:requestId
func (h *SwapHandler) Respond(c *gin.Context) {
	requestID, ok := pathID(c, "requestId")
	if !ok {
		return
	}

	var body SwapResponseBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Accept == nil {
		response.BadRequest(c, "accept must be a boolean")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swaps.RespondToSwap(c.Request.Context(), userID, requestID, *body.Accept)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, swap)
}
