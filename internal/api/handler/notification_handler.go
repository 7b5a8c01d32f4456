package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultKeepAlive = 25 * time.Second

// NotificationHandler поток уведомлений текущего пользователя (Server-Sent Events)
type NotificationHandler struct {
	hub       Subscriber
	keepAlive time.Duration
}

func NewNotificationHandler(hub Subscriber) *NotificationHandler {
	return &NotificationHandler{hub: hub, keepAlive: defaultKeepAlive}
}

// Stream GET /api/notifications/stream
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	notifications, cancel := h.hub.Subscribe(userID)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-notifications:
			if !ok {
				return false
			}
			c.SSEvent(string(n.Type), n)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
