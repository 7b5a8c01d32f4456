package handlers

import (
	"context"
	"errors"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
	"github.com/Freeeeeet/slot_swapper/internal/controller/formatting"
	"github.com/Freeeeeet/slot_swapper/internal/controller/keyboard"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleSwapCallback обрабатывает кнопки swap_accept:<id> и swap_reject:<id>
func (h *Handlers) HandleSwapCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	requestID, accept, err := keyboard.ParseSwapResponse(callback.Data)
	if err != nil {
		h.logger.Warn("Invalid swap callback", zap.String("data", callback.Data), zap.Error(err))
		h.answerCallback(ctx, b, callback.ID, "❌ Неизвестная команда", true)
		return
	}

	user, err := h.users.GetByTelegramID(ctx, callback.From.ID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", callback.From.ID), zap.Error(err))
		h.answerCallback(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте позже.", true)
		return
	}
	if user == nil {
		h.answerCallback(ctx, b, callback.ID, "❌ Используйте /start для регистрации.", true)
		return
	}

	req, err := h.swaps.RespondToSwap(ctx, user.ID, requestID, accept)
	if err != nil {
		h.answerCallback(ctx, b, callback.ID, respondErrorText(err), true)
		return
	}

	status := formatting.GetSwapStatusDisplay(req.Status)
	h.answerCallback(ctx, b, callback.ID, status.Emoji+" "+status.Text, false)

	// Заменяем сообщение с кнопками итоговым состоянием заявки
	msg := callback.Message.Message
	if msg == nil {
		return
	}
	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      formatting.SwapRequestText(req),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.logger.Warn("Failed to update swap request message",
			zap.Int64("swap_request_id", req.ID),
			zap.Error(err),
		)
	}
}

// respondErrorText текст ответа пользователю по виду ошибки
func respondErrorText(err error) string {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return "❌ Заявка не найдена"
	case errors.Is(err, apperror.ErrForbidden):
		return "❌ Эта заявка адресована не вам"
	case errors.Is(err, apperror.ErrAlreadyProcessed):
		return "ℹ️ На заявку уже ответили"
	case errors.Is(err, apperror.ErrConflict):
		return "⚠️ Заявка изменилась, попробуйте ещё раз"
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

// answerCallback отвечает на callback query
func (h *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}
