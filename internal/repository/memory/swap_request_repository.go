package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
)

type swapRepo struct {
	access
}

func newestFirst(a, b *model.SwapRequest) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func (r *swapRepo) Create(ctx context.Context, req *model.SwapRequest) (err error) {
	v, done := r.begin()
	defer done(&err)

	if v.slot(req.RequesterSlotID) == nil || v.slot(req.RequestedSlotID) == nil {
		return fmt.Errorf("create swap request: referenced slot does not exist")
	}

	// Аналог частичного уникального индекса по паре слотов
	if req.Status == model.SwapStatusPending && findPending(v, req.RequesterSlotID, req.RequestedSlotID) != nil {
		return repository.ErrDuplicate
	}

	v.nextSwapID++
	req.ID = v.nextSwapID
	req.CreatedAt = v.now
	req.UpdatedAt = v.now

	v.swaps[req.ID] = req.Clone()
	return nil
}

func (r *swapRepo) GetByID(ctx context.Context, id int64) (_ *model.SwapRequest, err error) {
	v, done := r.begin()
	defer done(&err)

	return v.swap(id).Clone(), nil
}

func (r *swapRepo) GetForUpdate(ctx context.Context, id int64) (*model.SwapRequest, error) {
	return r.GetByID(ctx, id)
}

func findPending(v *view, a, b int64) *model.SwapRequest {
	var found *model.SwapRequest
	v.eachSwap(func(req *model.SwapRequest) {
		if found == nil && req.IsPending() && req.Pairs(a, b) {
			found = req
		}
	})
	return found
}

func (r *swapRepo) FindPendingForPair(ctx context.Context, slotA, slotB int64) (_ *model.SwapRequest, err error) {
	v, done := r.begin()
	defer done(&err)

	return findPending(v, slotA, slotB).Clone(), nil
}

func (r *swapRepo) ListPendingIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	return r.list(func(req *model.SwapRequest) bool {
		return req.IsPending() && req.RequestedUserID == userID
	}, newestFirst)
}

func (r *swapRepo) ListPendingOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	return r.list(func(req *model.SwapRequest) bool {
		return req.IsPending() && req.RequesterID == userID
	}, newestFirst)
}

func (r *swapRepo) ListPending(ctx context.Context) ([]*model.SwapRequest, error) {
	return r.list((*model.SwapRequest).IsPending, func(a, b *model.SwapRequest) int {
		return newestFirst(b, a)
	})
}

func (r *swapRepo) list(match func(*model.SwapRequest) bool, order func(a, b *model.SwapRequest) int) (_ []*model.SwapRequest, err error) {
	v, done := r.begin()
	defer done(&err)

	var requests []*model.SwapRequest
	v.eachSwap(func(req *model.SwapRequest) {
		if match(req) {
			requests = append(requests, req.Clone())
		}
	})
	slices.SortFunc(requests, order)
	return requests, nil
}

func (r *swapRepo) UpdateStatus(ctx context.Context, id int64, from, to model.SwapStatus) (err error) {
	v, done := r.begin()
	defer done(&err)

	current := v.swap(id)
	if current == nil || current.Status != from {
		return repository.ErrStale
	}

	updated := current.Clone()
	updated.Status = to
	updated.UpdatedAt = v.now
	v.swaps[id] = updated
	return nil
}
