package postgres

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/Freeeeeet/slot_swapper/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, owner_id, title, start_time, end_time, status, version, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(q base.Querier) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(q)}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.Version,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (owner_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
	).Scan(&slot.ID, &slot.Version, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetForUpdate блокирует строки слотов до конца транзакции.
// Порядок блокировки по id одинаков для всех транзакций, поэтому взаимных блокировок нет.
func (r *SlotRepository) GetForUpdate(ctx context.Context, ids ...int64) (map[int64]*model.Slot, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.Query(ctx, query, sorted)
	if err != nil {
		return nil, fmt.Errorf("lock slots: %w", err)
	}
	defer rows.Close()

	slots := make(map[int64]*model.Slot, len(sorted))
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots[slot.ID] = slot
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock slots: %w", err)
	}

	return slots, nil
}

// ListByOwner получает все слоты пользователя
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE owner_id = $1
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}

	return slots, nil
}

// ListSwappable выполняет запрос заново при каждом проходе range
func (r *SlotRepository) ListSwappable(ctx context.Context, excludingOwner int64) iter.Seq2[*model.Slot, error] {
	return func(yield func(*model.Slot, error) bool) {
		query := `
			SELECT s.id, s.owner_id, s.title, s.start_time, s.end_time, s.status, s.version, s.created_at, s.updated_at,
			       u.id, u.telegram_id, u.username, u.first_name, u.last_name, u.language_code, u.created_at
			FROM slots s
			JOIN users u ON u.id = s.owner_id
			WHERE s.status = 'SWAPPABLE'
			  AND s.owner_id <> $1
			ORDER BY s.start_time, s.id
		`

		rows, err := r.Query(ctx, query, excludingOwner)
		if err != nil {
			yield(nil, fmt.Errorf("get swappable slots: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var slot model.Slot
			var owner model.User
			err := rows.Scan(
				&slot.ID,
				&slot.OwnerID,
				&slot.Title,
				&slot.StartTime,
				&slot.EndTime,
				&slot.Status,
				&slot.Version,
				&slot.CreatedAt,
				&slot.UpdatedAt,
				&owner.ID,
				&owner.TelegramID,
				&owner.Username,
				&owner.FirstName,
				&owner.LastName,
				&owner.LanguageCode,
				&owner.CreatedAt,
			)
			if err != nil {
				yield(nil, fmt.Errorf("scan slot: %w", err))
				return
			}
			slot.Owner = &owner
			if !yield(&slot, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("get swappable slots: %w", err))
		}
	}
}

// Save обновляет слот, если его статус не изменился с момента чтения
func (r *SlotRepository) Save(ctx context.Context, slot *model.Slot, expected model.SlotStatus) error {
	query := `
		UPDATE slots
		SET owner_id = $1, title = $2, start_time = $3, end_time = $4, status = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND status = $7
		RETURNING version, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.OwnerID,
		slot.Title,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
		slot.ID,
		expected,
	).Scan(&slot.Version, &slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return repository.ErrStale
		}
		return fmt.Errorf("save slot: %w", err)
	}

	return nil
}

// Delete удаляет слот в ожидаемом статусе
func (r *SlotRepository) Delete(ctx context.Context, id int64, expected model.SlotStatus) error {
	query := `DELETE FROM slots WHERE id = $1 AND status = $2`

	affected, err := r.ExecAffected(ctx, query, id, expected)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if affected == 0 {
		return repository.ErrStale
	}

	return nil
}
