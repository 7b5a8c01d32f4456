package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Callback data кнопок ответа на заявку
const (
	SwapAccept = "swap_accept:" // swap_accept:request_id
	SwapReject = "swap_reject:" // swap_reject:request_id
)

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// SwapResponse кнопки принять/отклонить для заявки
func SwapResponse(requestID int64) *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(
			Button("✅ Принять", fmt.Sprintf("%s%d", SwapAccept, requestID)),
			Button("🚫 Отклонить", fmt.Sprintf("%s%d", SwapReject, requestID)),
		).
		Build()
}

// ParseSwapResponse разбирает callback data кнопок заявки
// Например: "swap_accept:123" -> 123, true
func ParseSwapResponse(data string) (requestID int64, accept bool, err error) {
	var raw string
	switch {
	case strings.HasPrefix(data, SwapAccept):
		raw, accept = strings.TrimPrefix(data, SwapAccept), true
	case strings.HasPrefix(data, SwapReject):
		raw = strings.TrimPrefix(data, SwapReject)
	default:
		return 0, false, fmt.Errorf("unknown callback data %q", data)
	}

	requestID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || requestID <= 0 {
		return 0, false, fmt.Errorf("invalid request id in callback data %q", data)
	}
	return requestID, accept, nil
}
