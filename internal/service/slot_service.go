package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"go.uber.org/zap"
)

// SlotService управляет слотами календаря от имени владельца.
// Перевод в SWAP_PENDING и обратно делает только SwapService.
type SlotService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewSlotService(store repository.Store, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:  store,
		logger: logger,
	}
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperror.Validation("start and end time are required")
	}
	if !end.After(start) {
		return apperror.Validation("end time must be after start time")
	}
	return nil
}

// CreateSlot создаёт новый слот со статусом BUSY
func (s *SlotService) CreateSlot(ctx context.Context, ownerID int64, title string, start, end time.Time) (*model.Slot, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		OwnerID:   ownerID,
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Status:    model.SlotStatusBusy,
	}

	err := s.store.Slots().Create(ctx, slot)
	if err != nil {
		return nil, storeErr("create slot", err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("owner_id", ownerID),
		zap.Time("start_time", start),
	)

	return slot, nil
}

// ListMine получает все слоты пользователя по времени начала
func (s *SlotService) ListMine(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	slots, err := s.store.Slots().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// GetSlot получает слот владельца; чужой слот неотличим от отсутствующего
func (s *SlotService) GetSlot(ctx context.Context, slotID, requesterID int64) (*model.Slot, error) {
	slot, err := s.store.Slots().GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.OwnerID != requesterID {
		return nil, apperror.NotFound("slot not found")
	}
	return slot, nil
}

// ListSwappable ленивая выборка чужих SWAPPABLE слотов. Каждый range выполняет запрос заново.
func (s *SlotService) ListSwappable(ctx context.Context, excludingOwner int64) iter.Seq2[*model.Slot, error] {
	return s.store.Slots().ListSwappable(ctx, excludingOwner)
}

// SetStatus переключает BUSY <-> SWAPPABLE
func (s *SlotService) SetStatus(ctx context.Context, slotID, requesterID int64, status model.SlotStatus) (*model.Slot, error) {
	return s.UpdateSlot(ctx, slotID, requesterID, model.SlotPatch{Status: &status})
}

// UpdateSlot применяет правку владельца. Слот в SWAP_PENDING не редактируется.
func (s *SlotService) UpdateSlot(ctx context.Context, slotID, requesterID int64, patch model.SlotPatch) (*model.Slot, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperror.Validation("unknown slot status %q", *patch.Status)
	}

	var updated *model.Slot
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		slots, err := tx.Slots().GetForUpdate(ctx, slotID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}

		slot := slots[slotID]
		if slot == nil || slot.OwnerID != requesterID {
			return apperror.NotFound("slot not found")
		}

		if !slot.Status.OwnerEditable() {
			return apperror.InvalidTransition("cannot update slot with pending swap")
		}
		if patch.Status != nil && !patch.Status.OwnerEditable() {
			return apperror.InvalidTransition("status %s can only be set by a swap request", *patch.Status)
		}

		statusOnly := model.SlotPatch{Status: patch.Status}
		if patch.Empty() || (patch == statusOnly && *patch.Status == slot.Status) {
			updated = slot
			return nil
		}

		previous := slot.Status
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperror.Validation("title is required")
			}
			slot.Title = title
		}
		if patch.StartTime != nil {
			slot.StartTime = *patch.StartTime
		}
		if patch.EndTime != nil {
			slot.EndTime = *patch.EndTime
		}
		if err := validateInterval(slot.StartTime, slot.EndTime); err != nil {
			return err
		}
		if patch.Status != nil {
			slot.Status = *patch.Status
		}

		if err := tx.Slots().Save(ctx, slot, previous); err != nil {
			return err
		}

		updated = slot
		return nil
	})
	if err != nil {
		return nil, storeErr("update slot", err)
	}

	s.logger.Info("Slot updated",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", requesterID),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// DeleteSlot удаляет слот владельца, если по нему не идёт обмен
func (s *SlotService) DeleteSlot(ctx context.Context, slotID, requesterID int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		slots, err := tx.Slots().GetForUpdate(ctx, slotID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}

		slot := slots[slotID]
		if slot == nil {
			return apperror.NotFound("slot not found")
		}
		if slot.OwnerID != requesterID {
			return apperror.Forbidden("not allowed to delete this slot")
		}
		if !slot.Status.OwnerEditable() {
			return apperror.InvalidTransition("cannot delete slot with pending swap")
		}

		return tx.Slots().Delete(ctx, slotID, slot.Status)
	})
	if err != nil {
		return storeErr("delete slot", err)
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", requesterID),
	)

	return nil
}
