package model

import (
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
)

type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"
	SwapStatusAccepted SwapStatus = "ACCEPTED"
	SwapStatusRejected SwapStatus = "REJECTED"
)

// ParseSwapStatus проверяет значение статуса заявки
func ParseSwapStatus(s string) (SwapStatus, error) {
	switch status := SwapStatus(s); status {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected:
		return status, nil
	default:
		return "", apperror.Validation("unknown swap request status %q", s)
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case SwapStatusAccepted, SwapStatusRejected:
		return true
	case SwapStatusPending:
		return false
	default:
		return false
	}
}

// SwapRequest заявка на обмен двух слотов между двумя пользователями
type SwapRequest struct {
	ID              int64      `json:"id"`
	RequesterID     int64      `json:"requester_id"`
	RequestedUserID int64      `json:"requested_user_id"` // владелец слота B на момент создания
	RequesterSlotID int64      `json:"requester_slot_id"`
	RequestedSlotID int64      `json:"requested_slot_id"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Дополнительные поля для уведомлений и ответа API
	Requester     *User `json:"requester,omitempty"`
	RequestedUser *User `json:"requested_user,omitempty"`
	RequesterSlot *Slot `json:"requester_slot,omitempty"`
	RequestedSlot *Slot `json:"requested_slot,omitempty"`
}

// IsPending checks if request is still negotiable
func (r *SwapRequest) IsPending() bool {
	return r.Status == SwapStatusPending
}

// Pairs reports whether the request references exactly slots a and b, in either order.
func (r *SwapRequest) Pairs(a, b int64) bool {
	return (r.RequesterSlotID == a && r.RequestedSlotID == b) ||
		(r.RequesterSlotID == b && r.RequestedSlotID == a)
}

// Clone returns a shallow copy without resolved relations.
func (r *SwapRequest) Clone() *SwapRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Requester, c.RequestedUser, c.RequesterSlot, c.RequestedSlot = nil, nil, nil, nil
	return &c
}
