package repository

import (
	"context"
	"errors"
	"iter"

	"github.com/Freeeeeet/slot_swapper/internal/model"
)

// Ошибки хранилища, не зависящие от конкретной реализации
var (
	// ErrStale условная запись не нашла строку в ожидаемом состоянии
	ErrStale = errors.New("record changed concurrently")
	// ErrDuplicate нарушено ограничение уникальности
	ErrDuplicate = errors.New("duplicate record")
	// ErrTxConflict транзакция отменена из-за конфликта блокировок или сериализации
	ErrTxConflict = errors.New("transaction conflict")
)

// SlotRepository хранит слоты календаря.
// Get-методы возвращают nil, nil если запись не найдена.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	// GetForUpdate блокирует найденные слоты до конца транзакции (в порядке возрастания id)
	GetForUpdate(ctx context.Context, ids ...int64) (map[int64]*model.Slot, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error)
	// ListSwappable ленивая перезапускаемая выборка SWAPPABLE слотов чужих владельцев по start_time
	ListSwappable(ctx context.Context, excludingOwner int64) iter.Seq2[*model.Slot, error]
	// Save записывает владельца, название, время и статус, если текущий статус равен expected.
	// Иначе ErrStale.
	Save(ctx context.Context, slot *model.Slot, expected model.SlotStatus) error
	// Delete удаляет слот, если текущий статус равен expected. Иначе ErrStale.
	Delete(ctx context.Context, id int64, expected model.SlotStatus) error
}

// SwapRequestRepository хранит заявки на обмен
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id int64) (*model.SwapRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*model.SwapRequest, error)
	// FindPendingForPair ищет PENDING заявку по паре слотов в любом направлении
	FindPendingForPair(ctx context.Context, slotA, slotB int64) (*model.SwapRequest, error)
	ListPendingIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error)
	ListPendingOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error)
	ListPending(ctx context.Context) ([]*model.SwapRequest, error)
	// UpdateStatus переводит заявку из from в to. Иначе ErrStale.
	UpdateStatus(ctx context.Context, id int64, from, to model.SwapStatus) error
}

// UserRepository хранит пользователей
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids ...int64) (map[int64]*model.User, error)
}

// Tx набор репозиториев, привязанных к одной транзакции
type Tx interface {
	Slots() SlotRepository
	SwapRequests() SwapRequestRepository
	Users() UserRepository
}

// Store точка входа в хранилище. Репозитории самого Store работают вне транзакции.
type Store interface {
	Tx
	// WithinTx выполняет fn в одной транзакции: commit если fn вернула nil, иначе rollback.
	// Повторов нет: конфликт возвращается вызывающему.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close()
}
