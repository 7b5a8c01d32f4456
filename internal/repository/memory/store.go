// Package memory implements repository.Store in process memory.
//
// A transaction holds the store mutex from begin to commit, so transactions are
// serialized. Writes are staged in the transaction view and become visible only on
// commit; a failed transaction leaves nothing behind. Repositories obtained from the
// Store itself run each call as its own short transaction. They must not be used
// from inside WithinTx: the mutex is not reentrant.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
)

type state struct {
	slots map[int64]*model.Slot
	swaps map[int64]*model.SwapRequest
	users map[int64]*model.User

	nextSlotID int64
	nextSwapID int64
	nextUserID int64
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: &state{
			slots: make(map[int64]*model.Slot),
			swaps: make(map[int64]*model.SwapRequest),
			users: make(map[int64]*model.User),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Slots() repository.SlotRepository {
	return &slotRepo{access{store: s}}
}

func (s *Store) SwapRequests() repository.SwapRequestRepository {
	return &swapRepo{access{store: s}}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{access{store: s}}
}

func (s *Store) Close() {}

type txView struct {
	a access
}

func (t txView) Slots() repository.SlotRepository               { return &slotRepo{t.a} }
func (t txView) SwapRequests() repository.SwapRequestRepository { return &swapRepo{t.a} }
func (t txView) Users() repository.UserRepository               { return &userRepo{t.a} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newView()
	if err := fn(ctx, txView{access{store: s, tx: v}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	v.commit()
	return nil
}

// access выбирает между представлением транзакции и автокоммитом одной операции
type access struct {
	store *Store
	tx    *view
}

func (a access) begin() (*view, func(*error)) {
	if a.tx != nil {
		return a.tx, func(*error) {}
	}

	a.store.mu.Lock()
	v := a.store.newView()
	return v, func(errp *error) {
		if *errp == nil {
			v.commit()
		}
		a.store.mu.Unlock()
	}
}

// view накапливает изменения транзакции поверх закоммиченного состояния.
// nil в overlay означает удалённую запись.
type view struct {
	base *state
	now  time.Time

	slots map[int64]*model.Slot
	swaps map[int64]*model.SwapRequest
	users map[int64]*model.User

	nextSlotID int64
	nextSwapID int64
	nextUserID int64
}

func (s *Store) newView() *view {
	return &view{
		base:       s.st,
		now:        s.now(),
		slots:      make(map[int64]*model.Slot),
		swaps:      make(map[int64]*model.SwapRequest),
		users:      make(map[int64]*model.User),
		nextSlotID: s.st.nextSlotID,
		nextSwapID: s.st.nextSwapID,
		nextUserID: s.st.nextUserID,
	}
}

func (v *view) commit() {
	for id, slot := range v.slots {
		if slot == nil {
			delete(v.base.slots, id)
			continue
		}
		v.base.slots[id] = slot
	}
	for id, req := range v.swaps {
		if req == nil {
			delete(v.base.swaps, id)
			continue
		}
		v.base.swaps[id] = req
	}
	for id, user := range v.users {
		v.base.users[id] = user
	}
	v.base.nextSlotID = v.nextSlotID
	v.base.nextSwapID = v.nextSwapID
	v.base.nextUserID = v.nextUserID
}

func (v *view) slot(id int64) *model.Slot {
	if slot, ok := v.slots[id]; ok {
		return slot
	}
	return v.base.slots[id]
}

func (v *view) swap(id int64) *model.SwapRequest {
	if req, ok := v.swaps[id]; ok {
		return req
	}
	return v.base.swaps[id]
}

func (v *view) user(id int64) *model.User {
	if user, ok := v.users[id]; ok {
		return user
	}
	return v.base.users[id]
}

func (v *view) eachSlot(fn func(*model.Slot)) {
	for id, slot := range v.base.slots {
		if _, staged := v.slots[id]; staged {
			continue
		}
		fn(slot)
	}
	for _, slot := range v.slots {
		if slot != nil {
			fn(slot)
		}
	}
}

func (v *view) eachSwap(fn func(*model.SwapRequest)) {
	for id, req := range v.base.swaps {
		if _, staged := v.swaps[id]; staged {
			continue
		}
		fn(req)
	}
	for _, req := range v.swaps {
		if req != nil {
			fn(req)
		}
	}
}

func (v *view) eachUser(fn func(*model.User)) {
	for id, user := range v.base.users {
		if _, staged := v.users[id]; staged {
			continue
		}
		fn(user)
	}
	for _, user := range v.users {
		fn(user)
	}
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
