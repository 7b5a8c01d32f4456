package handlers

import (
	"context"
	"iter"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/service"
	"go.uber.org/zap"
)

// UserRegistry регистрация и поиск пользователей Telegram
type UserRegistry interface {
	RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// SlotLister слоты пользователя и рынок
type SlotLister interface {
	ListMine(ctx context.Context, ownerID int64) ([]*model.Slot, error)
	ListSwappable(ctx context.Context, excludingOwner int64) iter.Seq2[*model.Slot, error]
}

// SwapResponder заявки пользователя и ответ на них
type SwapResponder interface {
	ListRequests(ctx context.Context, userID int64) (*service.Requests, error)
	RespondToSwap(ctx context.Context, responderID, requestID int64, accept bool) (*model.SwapRequest, error)
}

// TokenIssuer выпускает токен для HTTP API
type TokenIssuer interface {
	GenerateAccessToken(userID int64) (string, time.Time, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	users  UserRegistry
	slots  SlotLister
	swaps  SwapResponder
	tokens TokenIssuer
	logger *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	users UserRegistry,
	slots SlotLister,
	swaps SwapResponder,
	tokens TokenIssuer,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		users:  users,
		slots:  slots,
		swaps:  swaps,
		tokens: tokens,
		logger: logger,
	}
}
