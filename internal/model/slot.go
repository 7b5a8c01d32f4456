package model

import (
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
)

type SlotStatus string

const (
	SlotStatusBusy        SlotStatus = "BUSY"
	SlotStatusSwappable   SlotStatus = "SWAPPABLE"
	SlotStatusSwapPending SlotStatus = "SWAP_PENDING" // Только через движок обменов
)

// ParseSlotStatus проверяет значение статуса, пришедшее извне
func ParseSlotStatus(s string) (SlotStatus, error) {
	switch status := SlotStatus(s); status {
	case SlotStatusBusy, SlotStatusSwappable, SlotStatusSwapPending:
		return status, nil
	default:
		return "", apperror.Validation("unknown slot status %q", s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s SlotStatus) Valid() bool {
	_, err := ParseSlotStatus(string(s))
	return err == nil
}

// OwnerEditable reports whether the owner may move a slot into or out of s directly.
func (s SlotStatus) OwnerEditable() bool {
	switch s {
	case SlotStatusBusy, SlotStatusSwappable:
		return true
	case SlotStatusSwapPending:
		return false
	default:
		return false
	}
}

type Slot struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	Version   int64      `json:"version"` // увеличивается при каждой записи
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Заполняется для отображения (не из таблицы slots)
	Owner *User `json:"owner,omitempty"`
}

// Clone returns a shallow copy; Owner is shared.
func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SlotPatch частичное обновление слота владельцем
type SlotPatch struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *SlotStatus
}

// Empty reports whether the patch changes nothing.
func (p SlotPatch) Empty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil && p.Status == nil
}
