package handler

import (
	"context"
	"iter"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/service"
)

// SlotStore операции со слотами владельца
type SlotStore interface {
	CreateSlot(ctx context.Context, ownerID int64, title string, start, end time.Time) (*model.Slot, error)
	ListMine(ctx context.Context, ownerID int64) ([]*model.Slot, error)
	GetSlot(ctx context.Context, slotID, requesterID int64) (*model.Slot, error)
	ListSwappable(ctx context.Context, excludingOwner int64) iter.Seq2[*model.Slot, error]
	SetStatus(ctx context.Context, slotID, requesterID int64, status model.SlotStatus) (*model.Slot, error)
	UpdateSlot(ctx context.Context, slotID, requesterID int64, patch model.SlotPatch) (*model.Slot, error)
	DeleteSlot(ctx context.Context, slotID, requesterID int64) error
}

// SwapEngine операции переговоров об обмене
type SwapEngine interface {
	RequestSwap(ctx context.Context, requesterID, mySlotID, theirSlotID int64) (*model.SwapRequest, error)
	RespondToSwap(ctx context.Context, responderID, requestID int64, accept bool) (*model.SwapRequest, error)
	ListRequests(ctx context.Context, userID int64) (*service.Requests, error)
	GetRequest(ctx context.Context, userID, requestID int64) (*model.SwapRequest, error)
}

// Subscriber регистрирует канал уведомлений пользователя
type Subscriber interface {
	Subscribe(userID int64) (<-chan model.Notification, func())
}

// Handler все обработчики API
type Handler struct {
	Event        *EventHandler
	Swap         *SwapHandler
	Notification *NotificationHandler
}

func NewHandler(slots SlotStore, swaps SwapEngine, hub Subscriber) *Handler {
	return &Handler{
		Event:        NewEventHandler(slots),
		Swap:         NewSwapHandler(slots, swaps),
		Notification: NewNotificationHandler(hub),
	}
}
