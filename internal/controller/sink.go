package controller

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swapper/internal/controller/formatting"
	"github.com/Freeeeeet/slot_swapper/internal/controller/keyboard"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть *bot.Bot, нужная для уведомлений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserLookup находит получателя уведомления
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramSink доставляет уведомления об обменах в личный чат получателя
type TelegramSink struct {
	sender MessageSender
	users  UserLookup
	logger *zap.Logger
}

func NewTelegramSink(sender MessageSender, users UserLookup, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

func (s *TelegramSink) Deliver(ctx context.Context, n model.Notification) error {
	if n.SwapRequest == nil {
		return fmt.Errorf("notification %s without swap request", n.Type)
	}

	user, err := s.users.GetByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	// Получатель без Telegram чата получает уведомление только через API
	if user == nil || user.TelegramID == 0 {
		s.logger.Debug("Recipient has no telegram chat", zap.Int64("recipient_id", n.RecipientID))
		return nil
	}

	params := &bot.SendMessageParams{
		ChatID:    user.TelegramID,
		Text:      formatting.NotificationText(n),
		ParseMode: models.ParseModeHTML,
	}
	if n.Type == model.NotificationSwapRequest {
		params.ReplyMarkup = keyboard.SwapResponse(n.SwapRequest.ID)
	}

	if _, err := s.sender.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	s.logger.Info("Telegram notification sent",
		zap.String("type", string(n.Type)),
		zap.Int64("recipient_id", n.RecipientID),
		zap.Int64("swap_request_id", n.SwapRequest.ID),
	)
	return nil
}
