package controller

import (
	"context"

	"github.com/Freeeeeet/slot_swapper/internal/controller/handlers"
	"github.com/Freeeeeet/slot_swapper/internal/controller/keyboard"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, cmdHandlers *handlers.Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/token", bot.MatchTypeExact, c.handlers.HandleToken)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/slots", bot.MatchTypeExact, c.handlers.HandleSlots)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/market", bot.MatchTypeExact, c.handlers.HandleMarket)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/requests", bot.MatchTypeExact, c.handlers.HandleRequests)

	// Кнопки ответа на заявку
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, keyboard.SwapAccept, bot.MatchTypePrefix, c.handlers.HandleSwapCallback)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, keyboard.SwapReject, bot.MatchTypePrefix, c.handlers.HandleSwapCallback)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "token", Description: "🔑 Токен для API"},
		{Command: "slots", Description: "📅 Мои слоты"},
		{Command: "market", Description: "🔁 Слоты для обмена"},
		{Command: "requests", Description: "📬 Заявки на обмен"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
