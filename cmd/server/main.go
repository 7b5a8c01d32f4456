package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/api/handler"
	"github.com/Freeeeeet/slot_swapper/internal/api/router"
	"github.com/Freeeeeet/slot_swapper/internal/app"
	"github.com/Freeeeeet/slot_swapper/internal/auth"
	"github.com/Freeeeeet/slot_swapper/internal/config"
	"github.com/Freeeeeet/slot_swapper/internal/controller"
	"github.com/Freeeeeet/slot_swapper/internal/controller/handlers"
	"github.com/Freeeeeet/slot_swapper/internal/notify"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/Freeeeeet/slot_swapper/internal/repository/memory"
	"github.com/Freeeeeet/slot_swapper/internal/repository/postgres"
	"github.com/Freeeeeet/slot_swapper/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting slot swapper",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.Bool("telegram", cfg.TelegramEnabled()),
	)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := notify.NewHub(logger.Named("notify"))

	userService := service.NewUserService(store.Users(), logger)
	slotService := service.NewSlotService(store, logger)
	swapService := service.NewSwapService(store, hub, logger)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}

		hub.AddSink(controller.NewTelegramSink(b, store.Users(), logger.Named("telegram")))

		cmdHandlers := handlers.NewHandlers(userService, slotService, swapService, tokens, logger.Named("telegram"))
		botController := controller.NewBotController(b, cmdHandlers, logger.Named("telegram"))
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	scheduler := app.NewScheduler(swapService, cfg.AuditInterval, logger.Named("scheduler"))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.Setup(
		handler.NewHandler(slotService, swapService, hub),
		tokens,
		userService,
		logger.Named("http"),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Закрываем SSE потоки, иначе Shutdown ждёт их до таймаута
	srv.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	// Доставляем уведомления по уже закоммиченным обменам
	swapService.Drain()

	logger.Info("Slot swapper stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return postgres.NewStore(pool, logger), nil
}
