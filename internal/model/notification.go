package model

import "time"

type NotificationType string

const (
	NotificationSwapRequest  NotificationType = "swap-request"
	NotificationSwapAccepted NotificationType = "swap-accepted"
	NotificationSwapRejected NotificationType = "swap-rejected"
)

// Notification факт, который движок отправляет адресату после коммита
type Notification struct {
	Type        NotificationType `json:"type"`
	RecipientID int64            `json:"recipient_id"`
	SwapRequest *SwapRequest     `json:"swap_request"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewSwapNotification builds the fact for a resolved request and picks the recipient:
// the requested slot's owner for a new request, the requester for a response.
func NewSwapNotification(t NotificationType, req *SwapRequest, now time.Time) Notification {
	n := Notification{
		Type:        t,
		SwapRequest: req,
		CreatedAt:   now,
	}

	switch t {
	case NotificationSwapRequest:
		n.RecipientID = req.RequestedUserID
		n.Message = "New swap request received"
	case NotificationSwapAccepted:
		n.RecipientID = req.RequesterID
		n.Message = "Your swap request was accepted"
	case NotificationSwapRejected:
		n.RecipientID = req.RequesterID
		n.Message = "Your swap request was rejected"
	}

	return n
}
