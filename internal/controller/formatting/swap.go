package formatting

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/slot_swapper/internal/model"
)

// SlotLine одна строка слота в HTML
func SlotLine(slot *model.Slot) string {
	if slot == nil {
		return "<i>слот удалён</i>"
	}
	status := GetSlotStatusDisplay(slot.Status)
	return fmt.Sprintf("%s <b>%s</b>\n    %s · #%d",
		status.Emoji,
		html.EscapeString(slot.Title),
		FormatInterval(slot.StartTime, slot.EndTime),
		slot.ID,
	)
}

// MarketLine слот на рынке вместе с владельцем
func MarketLine(slot *model.Slot) string {
	return fmt.Sprintf("%s\n    👤 %s", SlotLine(slot), html.EscapeString(slot.Owner.DisplayName()))
}

// SlotList список слотов или текст для пустого списка
func SlotList(title string, slots []*model.Slot, line func(*model.Slot) string, empty string) string {
	if len(slots) == 0 {
		return empty
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	for _, slot := range slots {
		sb.WriteString(line(slot))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SwapRequestText описание заявки для получателя
func SwapRequestText(req *model.SwapRequest) string {
	status := GetSwapStatusDisplay(req.Status)
	return fmt.Sprintf("🔁 <b>Заявка #%d</b> от %s\n\n"+
		"Вам предлагают:\n%s\n\n"+
		"В обмен на ваш:\n%s\n\n"+
		"%s %s",
		req.ID,
		html.EscapeString(req.Requester.DisplayName()),
		SlotLine(req.RequesterSlot),
		SlotLine(req.RequestedSlot),
		status.Emoji, status.Text,
	)
}

// NotificationText текст уведомления в Telegram
func NotificationText(n model.Notification) string {
	req := n.SwapRequest

	switch n.Type {
	case model.NotificationSwapRequest:
		return "📬 <b>Новая заявка на обмен</b>\n\n" + SwapRequestText(req)
	case model.NotificationSwapAccepted:
		return fmt.Sprintf("✅ <b>Обмен принят</b>\n\n%s принял(а) заявку #%d.\nТеперь ваш слот:\n%s",
			html.EscapeString(req.RequestedUser.DisplayName()),
			req.ID,
			SlotLine(req.RequestedSlot),
		)
	case model.NotificationSwapRejected:
		return fmt.Sprintf("🚫 <b>Обмен отклонён</b>\n\n%s отклонил(а) заявку #%d.\nВаш слот снова доступен для обмена:\n%s",
			html.EscapeString(req.RequestedUser.DisplayName()),
			req.ID,
			SlotLine(req.RequesterSlot),
		)
	default:
		return html.EscapeString(n.Message)
	}
}
