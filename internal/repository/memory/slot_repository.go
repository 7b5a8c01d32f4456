package memory

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
)

type slotRepo struct {
	access
}

func byStart(a, b *model.Slot) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (r *slotRepo) Create(ctx context.Context, slot *model.Slot) (err error) {
	v, done := r.begin()
	defer done(&err)

	if v.user(slot.OwnerID) == nil {
		return fmt.Errorf("create slot: owner %d does not exist", slot.OwnerID)
	}

	v.nextSlotID++
	slot.ID = v.nextSlotID
	slot.Version = 1
	slot.CreatedAt = v.now
	slot.UpdatedAt = v.now

	stored := slot.Clone()
	stored.Owner = nil
	v.slots[slot.ID] = stored
	return nil
}

func (r *slotRepo) GetByID(ctx context.Context, id int64) (_ *model.Slot, err error) {
	v, done := r.begin()
	defer done(&err)

	return v.slot(id).Clone(), nil
}

// GetForUpdate в памяти не блокирует отдельные строки: транзакция уже держит мьютекс хранилища
func (r *slotRepo) GetForUpdate(ctx context.Context, ids ...int64) (_ map[int64]*model.Slot, err error) {
	v, done := r.begin()
	defer done(&err)

	slots := make(map[int64]*model.Slot, len(ids))
	for _, id := range ids {
		if slot := v.slot(id); slot != nil {
			slots[id] = slot.Clone()
		}
	}
	return slots, nil
}

func (r *slotRepo) ListByOwner(ctx context.Context, ownerID int64) (_ []*model.Slot, err error) {
	v, done := r.begin()
	defer done(&err)

	var slots []*model.Slot
	v.eachSlot(func(slot *model.Slot) {
		if slot.OwnerID == ownerID {
			slots = append(slots, slot.Clone())
		}
	})
	slices.SortFunc(slots, byStart)
	return slots, nil
}

// ListSwappable делает снимок при каждом проходе range и отдаёт его по одному элементу
func (r *slotRepo) ListSwappable(ctx context.Context, excludingOwner int64) iter.Seq2[*model.Slot, error] {
	return func(yield func(*model.Slot, error) bool) {
		snapshot, err := r.swappableSnapshot(excludingOwner)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, slot := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(slot, nil) {
				return
			}
		}
	}
}

func (r *slotRepo) swappableSnapshot(excludingOwner int64) (_ []*model.Slot, err error) {
	v, done := r.begin()
	defer done(&err)

	var slots []*model.Slot
	v.eachSlot(func(slot *model.Slot) {
		if slot.Status != model.SlotStatusSwappable || slot.OwnerID == excludingOwner {
			return
		}
		c := slot.Clone()
		c.Owner = cloneUser(v.user(slot.OwnerID))
		slots = append(slots, c)
	})
	slices.SortFunc(slots, byStart)
	return slots, nil
}

func (r *slotRepo) Save(ctx context.Context, slot *model.Slot, expected model.SlotStatus) (err error) {
	v, done := r.begin()
	defer done(&err)

	current := v.slot(slot.ID)
	if current == nil || current.Status != expected {
		return repository.ErrStale
	}
	if v.user(slot.OwnerID) == nil {
		return fmt.Errorf("save slot: owner %d does not exist", slot.OwnerID)
	}

	slot.Version = current.Version + 1
	slot.CreatedAt = current.CreatedAt
	slot.UpdatedAt = v.now

	stored := slot.Clone()
	stored.Owner = nil
	v.slots[slot.ID] = stored
	return nil
}

// Delete удаляет слот и, как ON DELETE CASCADE, ссылающиеся на него заявки
func (r *slotRepo) Delete(ctx context.Context, id int64, expected model.SlotStatus) (err error) {
	v, done := r.begin()
	defer done(&err)

	current := v.slot(id)
	if current == nil || current.Status != expected {
		return repository.ErrStale
	}

	var cascade []int64
	v.eachSwap(func(req *model.SwapRequest) {
		if req.RequesterSlotID == id || req.RequestedSlotID == id {
			cascade = append(cascade, req.ID)
		}
	})

	v.slots[id] = nil
	for _, reqID := range cascade {
		v.swaps[reqID] = nil
	}
	return nil
}
