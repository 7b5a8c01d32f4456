package formatting

import "github.com/Freeeeeet/slot_swapper/internal/model"

// StatusDisplay представляет отображение статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetSlotStatusDisplay возвращает emoji и текст для статуса слота
func GetSlotStatusDisplay(status model.SlotStatus) StatusDisplay {
	displays := map[model.SlotStatus]StatusDisplay{
		model.SlotStatusBusy:        {"🔴", "Занят"},
		model.SlotStatusSwappable:   {"🟢", "Доступен для обмена"},
		model.SlotStatusSwapPending: {"⏳", "Идёт обмен"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetSwapStatusDisplay возвращает emoji и текст для статуса заявки
func GetSwapStatusDisplay(status model.SwapStatus) StatusDisplay {
	displays := map[model.SwapStatus]StatusDisplay{
		model.SwapStatusPending:  {"⏳", "Ожидает ответа"},
		model.SwapStatusAccepted: {"✅", "Принята"},
		model.SwapStatusRejected: {"🚫", "Отклонена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}
