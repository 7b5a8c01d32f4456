package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, telegramID int64) *model.User {
	t.Helper()
	u := &model.User{TelegramID: telegramID, FirstName: "user"}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func seedSlot(t *testing.T, s *Store, ownerID int64, hour int, status model.SlotStatus) *model.Slot {
	t.Helper()
	slot := &model.Slot{
		OwnerID:   ownerID,
		Title:     "slot",
		StartTime: base.Add(time.Duration(hour) * time.Hour),
		EndTime:   base.Add(time.Duration(hour+1) * time.Hour),
		Status:    status,
	}
	require.NoError(t, s.Slots().Create(context.Background(), slot))
	return slot
}

func TestWithinTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 1)
	slot := seedSlot(t, s, u.ID, 0, model.SlotStatusSwappable)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Slots().GetForUpdate(ctx, slot.ID)
		require.NoError(t, err)

		changed := locked[slot.ID]
		changed.Status = model.SlotStatusSwapPending
		require.NoError(t, tx.Slots().Save(ctx, changed, model.SlotStatusSwappable))

		// Изменения видны внутри транзакции
		inside, err := tx.Slots().GetByID(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusSwapPending, inside.Status)

		require.NoError(t, tx.Slots().Create(ctx, &model.Slot{
			OwnerID: u.ID, Title: "new", StartTime: base, EndTime: base.Add(time.Hour),
			Status: model.SlotStatusBusy,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Slots().GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusSwappable, got.Status)
	assert.Equal(t, int64(1), got.Version)

	mine, err := s.Slots().ListByOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSlotRepository_SaveIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 1)
	slot := seedSlot(t, s, u.ID, 0, model.SlotStatusBusy)

	slot.Status = model.SlotStatusSwappable
	require.NoError(t, s.Slots().Save(ctx, slot, model.SlotStatusBusy))
	assert.Equal(t, int64(2), slot.Version)

	// Второй писатель с устаревшим ожиданием проигрывает
	stale := slot.Clone()
	stale.Status = model.SlotStatusBusy
	err := s.Slots().Save(ctx, stale, model.SlotStatusBusy)
	require.ErrorIs(t, err, repository.ErrStale)

	got, err := s.Slots().GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusSwappable, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestSlotRepository_CreateRequiresOwner(t *testing.T) {
	s := NewStore()
	err := s.Slots().Create(context.Background(), &model.Slot{
		OwnerID: 42, Title: "x", StartTime: base, EndTime: base.Add(time.Hour), Status: model.SlotStatusBusy,
	})
	require.Error(t, err)
}

func TestSlotRepository_ListSwappableIsRestartable(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, 1)
	bob := seedUser(t, s, 2)

	late := seedSlot(t, s, bob.ID, 5, model.SlotStatusSwappable)
	early := seedSlot(t, s, bob.ID, 1, model.SlotStatusSwappable)
	seedSlot(t, s, bob.ID, 2, model.SlotStatusBusy)
	seedSlot(t, s, alice.ID, 0, model.SlotStatusSwappable)

	seq := s.Slots().ListSwappable(ctx, alice.ID)

	collect := func() []int64 {
		var ids []int64
		for slot, err := range seq {
			require.NoError(t, err)
			require.NotNil(t, slot.Owner)
			assert.Equal(t, bob.ID, slot.Owner.ID)
			ids = append(ids, slot.ID)
		}
		return ids
	}

	first := collect()
	assert.Equal(t, []int64{early.ID, late.ID}, first)
	assert.Equal(t, first, collect())

	// Каждый проход перечитывает состояние
	late.Status = model.SlotStatusBusy
	require.NoError(t, s.Slots().Save(ctx, late, model.SlotStatusSwappable))
	assert.Equal(t, []int64{early.ID}, collect())
}

func TestSlotRepository_ListSwappableEarlyBreak(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, 1)
	bob := seedUser(t, s, 2)
	for h := range 3 {
		seedSlot(t, s, bob.ID, h, model.SlotStatusSwappable)
	}

	n := 0
	for _, err := range s.Slots().ListSwappable(ctx, alice.ID) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)

	// Мьютекс не удерживается после прерванного прохода
	_, err := s.Slots().GetByID(ctx, 1)
	require.NoError(t, err)
}

func TestSlotRepository_DeleteCascadesRequests(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, 1)
	bob := seedUser(t, s, 2)
	a := seedSlot(t, s, alice.ID, 0, model.SlotStatusBusy)
	b := seedSlot(t, s, bob.ID, 1, model.SlotStatusBusy)

	req := &model.SwapRequest{
		RequesterID: alice.ID, RequestedUserID: bob.ID,
		RequesterSlotID: a.ID, RequestedSlotID: b.ID,
		Status: model.SwapStatusRejected,
	}
	require.NoError(t, s.SwapRequests().Create(ctx, req))

	require.ErrorIs(t, s.Slots().Delete(ctx, a.ID, model.SlotStatusSwappable), repository.ErrStale)
	require.NoError(t, s.Slots().Delete(ctx, a.ID, model.SlotStatusBusy))

	gone, err := s.Slots().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	cascaded, err := s.SwapRequests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, cascaded)
}

func TestSwapRequestRepository_PendingPairIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, 1)
	bob := seedUser(t, s, 2)
	a := seedSlot(t, s, alice.ID, 0, model.SlotStatusSwapPending)
	b := seedSlot(t, s, bob.ID, 1, model.SlotStatusSwapPending)

	first := &model.SwapRequest{
		RequesterID: alice.ID, RequestedUserID: bob.ID,
		RequesterSlotID: a.ID, RequestedSlotID: b.ID,
		Status: model.SwapStatusPending,
	}
	require.NoError(t, s.SwapRequests().Create(ctx, first))

	reversed := &model.SwapRequest{
		RequesterID: bob.ID, RequestedUserID: alice.ID,
		RequesterSlotID: b.ID, RequestedSlotID: a.ID,
		Status: model.SwapStatusPending,
	}
	require.ErrorIs(t, s.SwapRequests().Create(ctx, reversed), repository.ErrDuplicate)

	found, err := s.SwapRequests().FindPendingForPair(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	require.NoError(t, s.SwapRequests().UpdateStatus(ctx, first.ID, model.SwapStatusPending, model.SwapStatusRejected))
	require.ErrorIs(t,
		s.SwapRequests().UpdateStatus(ctx, first.ID, model.SwapStatusPending, model.SwapStatusAccepted),
		repository.ErrStale,
	)

	// После перехода в терминальный статус пара снова свободна
	require.NoError(t, s.SwapRequests().Create(ctx, reversed))
}

func TestSwapRequestRepository_ListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	clock := base
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	alice := seedUser(t, s, 1)
	bob := seedUser(t, s, 2)
	var ids []int64
	for h := range 3 {
		mine := seedSlot(t, s, alice.ID, h*2, model.SlotStatusSwapPending)
		theirs := seedSlot(t, s, bob.ID, h*2+1, model.SlotStatusSwapPending)
		req := &model.SwapRequest{
			RequesterID: alice.ID, RequestedUserID: bob.ID,
			RequesterSlotID: mine.ID, RequestedSlotID: theirs.ID,
			Status: model.SwapStatusPending,
		}
		require.NoError(t, s.SwapRequests().Create(ctx, req))
		ids = append(ids, req.ID)
	}

	incoming, err := s.SwapRequests().ListPendingIncoming(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 3)
	assert.Equal(t, ids[2], incoming[0].ID)
	assert.Equal(t, ids[0], incoming[2].ID)

	outgoing, err := s.SwapRequests().ListPendingOutgoing(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	all, err := s.SwapRequests().ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[0], all[0].ID)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := seedUser(t, s, 100)

	require.ErrorIs(t, s.Users().Create(ctx, &model.User{TelegramID: 100}), repository.ErrDuplicate)

	u.Username = "alice"
	u.TelegramID = 999
	require.NoError(t, s.Users().Update(ctx, u))

	got, err := s.Users().GetByTelegramID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	missing, err := s.Users().GetByTelegramID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byIDs, err := s.Users().GetByIDs(ctx, u.ID, 12345)
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
	assert.Contains(t, byIDs, u.ID)
}
