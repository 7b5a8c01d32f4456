package handlers

import (
	"context"
	"fmt"
	"html"

	"github.com/Freeeeeet/slot_swapper/internal/controller/formatting"
	"github.com/Freeeeeet/slot_swapper/internal/controller/keyboard"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// marketLimit сколько слотов рынка показывать в одном сообщении
const marketLimit = 20

const helpText = "📚 Справка по командам:\n\n" +
	"/start - Начать работу с ботом\n" +
	"/token - Получить токен для API\n" +
	"/slots - Мои слоты\n" +
	"/market - Слоты других пользователей, доступные для обмена\n" +
	"/requests - Заявки на обмен\n" +
	"/help - Показать эту справку\n\n" +
	"Слоты создаются и помечаются доступными для обмена через API, " +
	"ответить на заявку можно прямо из уведомления."

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user := update.Message.From

	// Регистрируем пользователя
	registeredUser, err := h.users.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)

	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Добро пожаловать в Slot Swapper - обмен слотами календаря с другими пользователями.\n\n",
		html.EscapeString(registeredUser.DisplayName()),
	) + html.EscapeString(helpText)

	h.sendHTML(ctx, b, update.Message.Chat.ID, welcomeText, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.sendHTML(ctx, b, update.Message.Chat.ID, html.EscapeString(helpText), nil)
}

// HandleToken выдаёт токен для HTTP API
func (h *Handlers) HandleToken(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	token, expiresAt, err := h.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		h.logger.Error("Failed to issue API token", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось выпустить токен. Попробуйте позже.")
		return
	}

	h.logger.Info("API token issued", zap.Int64("user_id", user.ID), zap.Time("expires_at", expiresAt))

	text := fmt.Sprintf("🔑 Ваш токен для API (действует до %s):\n\n<code>%s</code>\n\n"+
		"Передавайте его в заголовке <code>Authorization: Bearer &lt;token&gt;</code>",
		formatting.FormatDateTime(expiresAt),
		html.EscapeString(token),
	)
	h.sendHTML(ctx, b, update.Message.Chat.ID, text, nil)
}

// HandleSlots показывает слоты пользователя
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slots, err := h.slots.ListMine(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить слоты.")
		return
	}

	text := formatting.SlotList("📅 <b>Ваши слоты</b>", slots, formatting.SlotLine,
		"📭 У вас пока нет слотов.")
	h.sendHTML(ctx, b, update.Message.Chat.ID, text, nil)
}

// HandleMarket показывает чужие слоты, доступные для обмена
func (h *Handlers) HandleMarket(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slots, more, err := h.collectMarket(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list swappable slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить слоты.")
		return
	}

	text := formatting.SlotList("🔁 <b>Доступны для обмена</b>", slots, formatting.MarketLine,
		"📭 Сейчас никто не предлагает слоты для обмена.")
	if more {
		text += fmt.Sprintf("\n\n<i>Показаны первые %d слотов</i>", marketLimit)
	}
	h.sendHTML(ctx, b, update.Message.Chat.ID, text, nil)
}

// collectMarket читает не больше marketLimit слотов и сообщает, остались ли ещё
func (h *Handlers) collectMarket(ctx context.Context, userID int64) ([]*model.Slot, bool, error) {
	var slots []*model.Slot
	for slot, err := range h.slots.ListSwappable(ctx, userID) {
		if err != nil {
			return nil, false, err
		}
		if len(slots) == marketLimit {
			return slots, true, nil
		}
		slots = append(slots, slot)
	}
	return slots, false, nil
}

// HandleRequests показывает входящие заявки с кнопками ответа
func (h *Handlers) HandleRequests(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	requests, err := h.swaps.ListRequests(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list swap requests", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить заявки.")
		return
	}

	chatID := update.Message.Chat.ID
	h.sendHTML(ctx, b, chatID, fmt.Sprintf(
		"📬 Входящих заявок: <b>%d</b>\n📤 Исходящих заявок: <b>%d</b>",
		len(requests.Incoming), len(requests.Outgoing),
	), nil)

	for _, req := range requests.Incoming {
		h.sendHTML(ctx, b, chatID, formatting.SwapRequestText(req), keyboard.SwapResponse(req.ID))
	}
}
