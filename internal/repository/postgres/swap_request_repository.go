package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/Freeeeeet/slot_swapper/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const swapRequestColumns = `id, requester_id, requested_user_id, requester_slot_id, requested_slot_id, status, created_at, updated_at`

type SwapRequestRepository struct {
	*base.Repository
}

func NewSwapRequestRepository(q base.Querier) *SwapRequestRepository {
	return &SwapRequestRepository{Repository: base.NewRepository(q)}
}

func scanSwapRequest(row pgx.Row) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.RequestedUserID,
		&req.RequesterSlotID,
		&req.RequestedSlotID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create создаёт новую заявку на обмен
func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	query := `
		INSERT INTO swap_requests (requester_id, requested_user_id, requester_slot_id, requested_slot_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		req.RequesterID,
		req.RequestedUserID,
		req.RequesterSlotID,
		req.RequestedSlotID,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		// Уникальный индекс по паре слотов для PENDING заявок
		if base.PgCode(err) == base.CodeUniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("create swap request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *SwapRequestRepository) GetByID(ctx context.Context, id int64) (*model.SwapRequest, error) {
	return r.getOne(ctx, `SELECT `+swapRequestColumns+` FROM swap_requests WHERE id = $1`, id)
}

// GetForUpdate получает заявку и блокирует её до конца транзакции
func (r *SwapRequestRepository) GetForUpdate(ctx context.Context, id int64) (*model.SwapRequest, error) {
	return r.getOne(ctx, `SELECT `+swapRequestColumns+` FROM swap_requests WHERE id = $1 FOR UPDATE`, id)
}

// FindPendingForPair ищет PENDING заявку по паре слотов в любом направлении
func (r *SwapRequestRepository) FindPendingForPair(ctx context.Context, slotA, slotB int64) (*model.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM swap_requests
		WHERE status = 'PENDING'
		  AND ((requester_slot_id = $1 AND requested_slot_id = $2)
		    OR (requester_slot_id = $2 AND requested_slot_id = $1))
		LIMIT 1
	`
	return r.getOne(ctx, query, slotA, slotB)
}

func (r *SwapRequestRepository) getOne(ctx context.Context, query string, args ...any) (*model.SwapRequest, error) {
	req, err := scanSwapRequest(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap request: %w", err)
	}
	return req, nil
}

// ListPendingIncoming заявки, адресованные пользователю, новые первыми
func (r *SwapRequestRepository) ListPendingIncoming(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM swap_requests
		WHERE requested_user_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

// ListPendingOutgoing заявки пользователя, новые первыми
func (r *SwapRequestRepository) ListPendingOutgoing(ctx context.Context, userID int64) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM swap_requests
		WHERE requester_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

// ListPending все незавершённые заявки, старые первыми
func (r *SwapRequestRepository) ListPending(ctx context.Context) ([]*model.SwapRequest, error) {
	query := `
		SELECT ` + swapRequestColumns + `
		FROM swap_requests
		WHERE status = 'PENDING'
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query)
}

func (r *SwapRequestRepository) list(ctx context.Context, query string, args ...any) ([]*model.SwapRequest, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.SwapRequest
	for rows.Next() {
		req, err := scanSwapRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus переводит заявку из статуса from в to
func (r *SwapRequestRepository) UpdateStatus(ctx context.Context, id int64, from, to model.SwapStatus) error {
	query := `
		UPDATE swap_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	affected, err := r.ExecAffected(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update swap request status: %w", err)
	}

	if affected == 0 {
		return repository.ErrStale
	}

	return nil
}
