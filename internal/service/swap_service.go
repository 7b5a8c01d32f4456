package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"go.uber.org/zap"
)

// Emitter доставляет факт адресату. Ошибка доставки не влияет на результат обмена.
type Emitter interface {
	Emit(ctx context.Context, n model.Notification) error
}

const (
	defaultEmitTimeout = 10 * time.Second
	// emitQueueSize очередь уведомлений перед единственным отправителем
	emitQueueSize = 256
)

// SwapService движок обменов: создание заявки и ответ на неё,
// каждая операция в одной транзакции над заявкой и двумя слотами.
type SwapService struct {
	store       repository.Store
	emitter     Emitter
	logger      *zap.Logger
	emitTimeout time.Duration
	now         func() time.Time

	// Уведомления отправляет одна горутина в порядке постановки в очередь
	queueMu   sync.RWMutex
	draining  bool
	queue     chan model.Notification
	drainOnce sync.Once
	done      chan struct{}
}

func NewSwapService(store repository.Store, emitter Emitter, logger *zap.Logger) *SwapService {
	s := &SwapService{
		store:       store,
		emitter:     emitter,
		logger:      logger,
		emitTimeout: defaultEmitTimeout,
		now:         time.Now,
		queue:       make(chan model.Notification, emitQueueSize),
		done:        make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Requests входящие и исходящие PENDING заявки пользователя
type Requests struct {
	Incoming []*model.SwapRequest `json:"incoming"`
	Outgoing []*model.SwapRequest `json:"outgoing"`
}

// requireSwappable проверяет что слот можно поставить в обмен
func requireSwappable(slot *model.Slot, label string) error {
	switch slot.Status {
	case model.SlotStatusSwappable:
		return nil
	case model.SlotStatusSwapPending:
		return apperror.Conflict("%s is already involved in a pending swap", label)
	case model.SlotStatusBusy:
		return apperror.InvalidTransition("%s must be swappable", label)
	default:
		return apperror.InconsistentState("%s has unknown status %q", label, slot.Status)
	}
}

// checkPendingPair проверяет инвариант PENDING заявки: оба слота существуют,
// находятся в SWAP_PENDING и принадлежат сторонам заявки
func checkPendingPair(req *model.SwapRequest, requesterSlot, requestedSlot *model.Slot) error {
	if requesterSlot == nil || requestedSlot == nil {
		return apperror.InconsistentState("swap request %d references a missing slot", req.ID)
	}
	if requesterSlot.Status != model.SlotStatusSwapPending || requestedSlot.Status != model.SlotStatusSwapPending {
		return apperror.InconsistentState("slots of swap request %d are no longer in pending state", req.ID)
	}
	if requesterSlot.OwnerID != req.RequesterID || requestedSlot.OwnerID != req.RequestedUserID {
		return apperror.InconsistentState("slot ownership changed under swap request %d", req.ID)
	}
	return nil
}

// RequestSwap создаёт заявку на обмен слота mySlotID на чужой слот theirSlotID
func (s *SwapService) RequestSwap(ctx context.Context, requesterID, mySlotID, theirSlotID int64) (*model.SwapRequest, error) {
	if mySlotID == theirSlotID {
		return nil, apperror.Validation("cannot swap a slot with itself")
	}

	var created *model.SwapRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// Блокируем оба слота: параллельная заявка на те же слоты ждёт нашего коммита
		slots, err := tx.Slots().GetForUpdate(ctx, mySlotID, theirSlotID)
		if err != nil {
			return fmt.Errorf("lock slots: %w", err)
		}

		mySlot := slots[mySlotID]
		if mySlot == nil || mySlot.OwnerID != requesterID {
			return apperror.NotFound("your slot not found")
		}

		theirSlot := slots[theirSlotID]
		if theirSlot == nil {
			return apperror.NotFound("requested slot not found")
		}

		if theirSlot.OwnerID == requesterID {
			return apperror.Validation("cannot request swap with your own slot")
		}

		existing, err := tx.SwapRequests().FindPendingForPair(ctx, mySlotID, theirSlotID)
		if err != nil {
			return fmt.Errorf("find pending request: %w", err)
		}
		if existing != nil {
			return apperror.Conflict("swap request already exists")
		}

		if err := requireSwappable(mySlot, "your slot"); err != nil {
			return err
		}
		if err := requireSwappable(theirSlot, "requested slot"); err != nil {
			return err
		}

		req := &model.SwapRequest{
			RequesterID:     requesterID,
			RequestedUserID: theirSlot.OwnerID,
			RequesterSlotID: mySlotID,
			RequestedSlotID: theirSlotID,
			Status:          model.SwapStatusPending,
		}
		if err := tx.SwapRequests().Create(ctx, req); err != nil {
			return err
		}

		// Оба слота SWAPPABLE -> SWAP_PENDING, запись условная по статусу
		for _, slot := range []*model.Slot{mySlot, theirSlot} {
			slot.Status = model.SlotStatusSwapPending
			if err := tx.Slots().Save(ctx, slot, model.SlotStatusSwappable); err != nil {
				return err
			}
		}

		req.RequesterSlot = mySlot
		req.RequestedSlot = theirSlot
		if err := resolveUsers(ctx, tx, req); err != nil {
			return err
		}

		created = req
		return nil
	})
	if err != nil {
		return nil, s.fail("request swap", err,
			zap.Int64("requester_id", requesterID),
			zap.Int64("my_slot_id", mySlotID),
			zap.Int64("their_slot_id", theirSlotID),
		)
	}

	s.logger.Info("Swap requested",
		zap.Int64("swap_request_id", created.ID),
		zap.Int64("requester_id", requesterID),
		zap.Int64("requested_user_id", created.RequestedUserID),
		zap.Int64("my_slot_id", mySlotID),
		zap.Int64("their_slot_id", theirSlotID),
	)

	s.emit(model.NewSwapNotification(model.NotificationSwapRequest, created, s.now()))

	return created, nil
}

// RespondToSwap принимает или отклоняет заявку. Отвечать может только владелец запрошенного слота.
func (s *SwapService) RespondToSwap(ctx context.Context, responderID, requestID int64, accept bool) (*model.SwapRequest, error) {
	var resolved *model.SwapRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		req, err := tx.SwapRequests().GetForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get swap request: %w", err)
		}
		if req == nil {
			return apperror.NotFound("swap request not found")
		}

		if req.RequestedUserID != responderID {
			return apperror.Forbidden("not authorized to respond to this request")
		}

		if req.Status != model.SwapStatusPending {
			return apperror.AlreadyProcessed("swap request already processed")
		}

		slots, err := tx.Slots().GetForUpdate(ctx, req.RequesterSlotID, req.RequestedSlotID)
		if err != nil {
			return fmt.Errorf("lock slots: %w", err)
		}

		requesterSlot := slots[req.RequesterSlotID]
		requestedSlot := slots[req.RequestedSlotID]
		if err := checkPendingPair(req, requesterSlot, requestedSlot); err != nil {
			return err
		}

		outcome := model.SwapStatusRejected
		if accept {
			// Меняем владельцев местами, оба слота становятся BUSY
			requesterSlot.OwnerID, requestedSlot.OwnerID = requestedSlot.OwnerID, requesterSlot.OwnerID
			requesterSlot.Status = model.SlotStatusBusy
			requestedSlot.Status = model.SlotStatusBusy
			outcome = model.SwapStatusAccepted
		} else {
			requesterSlot.Status = model.SlotStatusSwappable
			requestedSlot.Status = model.SlotStatusSwappable
		}

		for _, slot := range []*model.Slot{requesterSlot, requestedSlot} {
			if err := tx.Slots().Save(ctx, slot, model.SlotStatusSwapPending); err != nil {
				return err
			}
		}

		err = tx.SwapRequests().UpdateStatus(ctx, req.ID, model.SwapStatusPending, outcome)
		if errors.Is(err, repository.ErrStale) {
			return apperror.AlreadyProcessed("swap request already processed")
		}
		if err != nil {
			return err
		}
		req.Status = outcome

		req.RequesterSlot = requesterSlot
		req.RequestedSlot = requestedSlot
		if err := resolveUsers(ctx, tx, req); err != nil {
			return err
		}

		resolved = req
		return nil
	})
	if err != nil {
		return nil, s.fail("respond to swap", err,
			zap.Int64("responder_id", responderID),
			zap.Int64("swap_request_id", requestID),
			zap.Bool("accept", accept),
		)
	}

	s.logger.Info("Swap request resolved",
		zap.Int64("swap_request_id", resolved.ID),
		zap.Int64("responder_id", responderID),
		zap.String("status", string(resolved.Status)),
	)

	notificationType := model.NotificationSwapRejected
	if resolved.Status == model.SwapStatusAccepted {
		notificationType = model.NotificationSwapAccepted
	}
	s.emit(model.NewSwapNotification(notificationType, resolved, s.now()))

	return resolved, nil
}

// ListRequests получает входящие и исходящие PENDING заявки пользователя, новые первыми
func (s *SwapService) ListRequests(ctx context.Context, userID int64) (*Requests, error) {
	result := &Requests{
		Incoming: []*model.SwapRequest{},
		Outgoing: []*model.SwapRequest{},
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		incoming, err := tx.SwapRequests().ListPendingIncoming(ctx, userID)
		if err != nil {
			return fmt.Errorf("list incoming: %w", err)
		}
		outgoing, err := tx.SwapRequests().ListPendingOutgoing(ctx, userID)
		if err != nil {
			return fmt.Errorf("list outgoing: %w", err)
		}

		for _, req := range append(incoming, outgoing...) {
			if err := resolveSlots(ctx, tx, req); err != nil {
				return err
			}
			if err := resolveUsers(ctx, tx, req); err != nil {
				return err
			}
		}

		result.Incoming = append(result.Incoming, incoming...)
		result.Outgoing = append(result.Outgoing, outgoing...)
		return nil
	})
	if err != nil {
		return nil, storeErr("list swap requests", err)
	}

	return result, nil
}

// GetRequest получает заявку, видимую только её участникам
func (s *SwapService) GetRequest(ctx context.Context, userID, requestID int64) (*model.SwapRequest, error) {
	var found *model.SwapRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		req, err := tx.SwapRequests().GetByID(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get swap request: %w", err)
		}
		if req == nil || (req.RequesterID != userID && req.RequestedUserID != userID) {
			return apperror.NotFound("swap request not found")
		}
		if err := resolveSlots(ctx, tx, req); err != nil {
			return err
		}
		if err := resolveUsers(ctx, tx, req); err != nil {
			return err
		}
		found = req
		return nil
	})
	if err != nil {
		return nil, storeErr("get swap request", err)
	}
	return found, nil
}

// AuditPending перепроверяет инвариант всех PENDING заявок.
// Нарушения только логируются: данные не исправляются автоматически.
func (s *SwapService) AuditPending(ctx context.Context) (int, error) {
	pending, err := s.store.SwapRequests().ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending requests: %w", err)
	}

	violations := 0
	for _, candidate := range pending {
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			req, err := tx.SwapRequests().GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return fmt.Errorf("get swap request: %w", err)
			}
			// Заявку успели обработать после выборки
			if req == nil || req.Status != model.SwapStatusPending {
				return nil
			}

			slots, err := tx.Slots().GetForUpdate(ctx, req.RequesterSlotID, req.RequestedSlotID)
			if err != nil {
				return fmt.Errorf("lock slots: %w", err)
			}
			return checkPendingPair(req, slots[req.RequesterSlotID], slots[req.RequestedSlotID])
		})

		switch apperror.KindOf(err) {
		case "":
		case apperror.KindInconsistentState:
			violations++
			s.logger.Error("Swap invariant violated",
				zap.Int64("swap_request_id", candidate.ID),
				zap.Int64("requester_slot_id", candidate.RequesterSlotID),
				zap.Int64("requested_slot_id", candidate.RequestedSlotID),
				zap.Error(err),
			)
		default:
			return violations, fmt.Errorf("audit swap request %d: %w", candidate.ID, err)
		}
	}

	return violations, nil
}

// Drain закрывает очередь уведомлений и ждёт отправки уже поставленных.
// Уведомления после Drain не отправляются. Повторный вызов безопасен.
func (s *SwapService) Drain() {
	s.drainOnce.Do(func() {
		s.queueMu.Lock()
		s.draining = true
		close(s.queue)
		s.queueMu.Unlock()
	})
	<-s.done
}

// emit ставит уведомление в очередь после коммита.
// Результат обмена уже зафиксирован, поэтому доставка не влияет на ответ.
func (s *SwapService) emit(n model.Notification) {
	if s.emitter == nil {
		return
	}

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.draining {
		s.logger.Warn("Notification dropped, service is draining",
			zap.String("type", string(n.Type)),
			zap.Int64("recipient_id", n.RecipientID),
		)
		return
	}
	s.queue <- n
}

// dispatch отправляет уведомления по одному, сохраняя порядок коммитов
func (s *SwapService) dispatch() {
	defer close(s.done)
	for n := range s.queue {
		s.deliver(n)
	}
}

func (s *SwapService) deliver(n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Notification emitter panicked",
				zap.String("type", string(n.Type)),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.emitTimeout)
	defer cancel()

	if err := s.emitter.Emit(ctx, n); err != nil {
		s.logger.Warn("Failed to emit notification",
			zap.String("type", string(n.Type)),
			zap.Int64("recipient_id", n.RecipientID),
			zap.Int64("swap_request_id", n.SwapRequest.ID),
			zap.Error(err),
		)
	}
}

// fail приводит ошибку к типу приложения и логирует её с уровнем по виду
func (s *SwapService) fail(op string, err error, fields ...zap.Field) error {
	err = storeErr(op, err)
	fields = append(fields, zap.Error(err))

	switch apperror.KindOf(err) {
	case apperror.KindInconsistentState:
		s.logger.Error("Swap invariant violated", fields...)
	case apperror.KindInternal:
		s.logger.Error("Swap operation failed", fields...)
	case apperror.KindConflict:
		s.logger.Info("Swap operation lost a race", fields...)
	default:
		s.logger.Debug("Swap operation rejected", fields...)
	}

	return err
}

func resolveSlots(ctx context.Context, tx repository.Tx, req *model.SwapRequest) error {
	var err error
	if req.RequesterSlot, err = tx.Slots().GetByID(ctx, req.RequesterSlotID); err != nil {
		return fmt.Errorf("get requester slot: %w", err)
	}
	if req.RequestedSlot, err = tx.Slots().GetByID(ctx, req.RequestedSlotID); err != nil {
		return fmt.Errorf("get requested slot: %w", err)
	}
	return nil
}

// resolveUsers заполняет участников заявки и владельцев слотов для отображения
func resolveUsers(ctx context.Context, tx repository.Tx, req *model.SwapRequest) error {
	ids := []int64{req.RequesterID, req.RequestedUserID}
	if req.RequesterSlot != nil {
		ids = append(ids, req.RequesterSlot.OwnerID)
	}
	if req.RequestedSlot != nil {
		ids = append(ids, req.RequestedSlot.OwnerID)
	}

	users, err := tx.Users().GetByIDs(ctx, ids...)
	if err != nil {
		return fmt.Errorf("get users: %w", err)
	}

	req.Requester = users[req.RequesterID]
	req.RequestedUser = users[req.RequestedUserID]
	if req.RequesterSlot != nil {
		req.RequesterSlot.Owner = users[req.RequesterSlot.OwnerID]
	}
	if req.RequestedSlot != nil {
		req.RequestedSlot.Owner = users[req.RequestedSlot.OwnerID]
	}
	return nil
}
