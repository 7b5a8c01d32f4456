package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/Freeeeeet/slot_swapper/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store реализация repository.Store поверх pgxpool
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	slots *SlotRepository
	swaps *SwapRequestRepository
	users *UserRepository
}

// NewPool открывает пул соединений и проверяет доступность базы
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger,
		slots:  NewSlotRepository(pool),
		swaps:  NewSwapRequestRepository(pool),
		users:  NewUserRepository(pool),
	}
}

func (s *Store) Slots() repository.SlotRepository               { return s.slots }
func (s *Store) SwapRequests() repository.SwapRequestRepository { return s.swaps }
func (s *Store) Users() repository.UserRepository               { return s.users }

// Pool возвращает пул соединений (нужен мигратору)
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Close() {
	s.pool.Close()
}

type txRepos struct {
	slots *SlotRepository
	swaps *SwapRequestRepository
	users *UserRepository
}

func (t *txRepos) Slots() repository.SlotRepository               { return t.slots }
func (t *txRepos) SwapRequests() repository.SwapRequestRepository { return t.swaps }
func (t *txRepos) Users() repository.UserRepository               { return t.users }

// WithinTx выполняет fn в транзакции READ COMMITTED.
// Предусловия перечитываются под FOR UPDATE, поэтому проверка видит последнее закоммиченное состояние.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	// Начинаем транзакцию
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("Failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	repos := &txRepos{
		slots: NewSlotRepository(tx),
		swaps: NewSwapRequestRepository(tx),
		users: NewUserRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return classify(err)
	}

	// Коммитим транзакцию
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}

	return nil
}

// classify помечает ошибки блокировок и сериализации как repository.ErrTxConflict
func classify(err error) error {
	switch base.PgCode(err) {
	case base.CodeSerializationFailure, base.CodeDeadlockDetected, base.CodeLockNotAvailable:
		return fmt.Errorf("%w: %w", repository.ErrTxConflict, err)
	default:
		return err
	}
}
