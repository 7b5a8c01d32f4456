// Package notify delivers swap notifications to their recipients.
//
// A Hub keeps an addressable registry of live subscriber channels keyed by user id
// and forwards every notification to the configured sinks as well.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"go.uber.org/zap"
)

const DefaultBuffer = 16

// Sink доставляет уведомление во внешний транспорт (Telegram и т.п.)
type Sink interface {
	Deliver(ctx context.Context, n model.Notification) error
}

type subscriber struct {
	ch chan model.Notification
}

type Hub struct {
	mu     sync.RWMutex
	closed bool
	subs   map[int64]map[*subscriber]struct{}
	sinks  []Sink
	buffer int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int64]map[*subscriber]struct{}),
		buffer: DefaultBuffer,
		logger: logger,
	}
}

// AddSink подключает транспорт. Вызывать до начала работы.
func (h *Hub) AddSink(sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, sink)
}

// Subscribe регистрирует канал для пользователя. cancel можно вызывать повторно.
func (h *Hub) Subscribe(userID int64) (<-chan model.Notification, func()) {
	sub := &subscriber{ch: make(chan model.Notification, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			// Close мог уже закрыть канал
			if _, ok := h.subs[userID][sub]; !ok {
				return
			}
			delete(h.subs[userID], sub)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(sub.ch)
		})
	}

	return sub.ch, cancel
}

// Subscribers количество активных каналов пользователя
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close закрывает все каналы подписчиков, новые подписки сразу получают закрытый канал
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for userID, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subs, userID)
	}
}

// Emit рассылает уведомление подписчикам получателя без блокировки, затем в sinks
func (h *Hub) Emit(ctx context.Context, n model.Notification) error {
	h.mu.RLock()
	for sub := range h.subs[n.RecipientID] {
		select {
		case sub.ch <- n:
		default:
			h.logger.Warn("Subscriber buffer full, notification dropped",
				zap.Int64("recipient_id", n.RecipientID),
				zap.String("type", string(n.Type)),
			)
		}
	}
	sinks := h.sinks
	h.mu.RUnlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("deliver %s: %w", n.Type, err))
		}
	}
	return errors.Join(errs...)
}
