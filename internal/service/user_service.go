package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// RegisterUser регистрирует или обновляет пользователя
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*model.User, error) {
	// Проверяем существует ли пользователь
	existingUser, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	// Если пользователь уже существует, обновляем данные
	if existingUser != nil {
		existingUser.Username = username
		existingUser.FirstName = firstName
		existingUser.LastName = lastName
		existingUser.LanguageCode = languageCode

		err = s.users.Update(ctx, existingUser)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}

		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)

		return existingUser, nil
	}

	// Создаём нового пользователя
	user := &model.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		LanguageCode: languageCode,
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// Проиграли параллельной регистрации, отдаём созданного ею пользователя
		existingUser, getErr := s.users.GetByTelegramID(ctx, telegramID)
		if getErr != nil {
			return nil, fmt.Errorf("get registered user: %w", getErr)
		}
		if existingUser != nil {
			return existingUser, nil
		}
	}
	if err != nil {
		return nil, storeErr("create user", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID; отсутствие пользователя это NotFound
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}
	return user, nil
}

// Exists проверяет, что пользователь зарегистрирован
func (s *UserService) Exists(ctx context.Context, id int64) (bool, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	return user != nil, nil
}
