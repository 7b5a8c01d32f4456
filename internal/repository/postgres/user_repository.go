package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/Freeeeeet/slot_swapper/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(q base.Querier) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(q)}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.LanguageCode,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, language_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		// Параллельный /start уже создал пользователя с этим telegram_id
		if base.PgCode(err) == base.CodeUniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// Update обновляет данные пользователя
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, language_code = $4
		WHERE id = $5
	`

	affected, err := r.ExecAffected(
		ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := scanUser(r.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// GetByIDs получает пользователей пачкой; отсутствующие ID просто не попадают в результат
func (r *UserRepository) GetByIDs(ctx context.Context, ids ...int64) (map[int64]*model.User, error) {
	users := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := r.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}

	return users, nil
}
