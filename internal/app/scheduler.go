package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PendingAuditor перепроверяет инвариант PENDING заявок
type PendingAuditor interface {
	AuditPending(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	auditor  PendingAuditor
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(auditor PendingAuditor, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		auditor:  auditor,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("audit_interval", s.interval))

	s.done.Add(1)
	go s.runAuditTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.done.Wait()
}

// runAuditTask периодически проверяет согласованность PENDING заявок и их слотов
func (s *Scheduler) runAuditTask(ctx context.Context) {
	defer s.done.Done()

	// Первый запуск сразу при старте
	s.audit(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.audit(ctx)
		case <-s.stopChan:
			s.logger.Info("Audit task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Audit task cancelled")
			return
		}
	}
}

func (s *Scheduler) audit(ctx context.Context) {
	violations, err := s.auditor.AuditPending(ctx)
	if err != nil {
		s.logger.Error("Failed to audit pending swap requests", zap.Error(err))
		return
	}

	if violations > 0 {
		s.logger.Error("Pending swap audit found violations", zap.Int("violations", violations))
		return
	}

	s.logger.Debug("Pending swap audit completed")
}
