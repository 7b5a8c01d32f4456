package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
	"github.com/Freeeeeet/slot_swapper/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// lateUsers не видит пользователя при первой проверке, как будто
// параллельный /start создал его между проверкой и вставкой
type lateUsers struct {
	repository.UserRepository
	lookups int
}

func (r *lateUsers) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.UserRepository.GetByTelegramID(ctx, telegramID)
}

func TestRegisterUser_ConcurrentStartReturnsWinner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	winner := &model.User{TelegramID: 42, Username: "first"}
	require.NoError(t, store.Users().Create(ctx, winner))

	users := &lateUsers{UserRepository: store.Users()}
	svc := NewUserService(users, zaptest.NewLogger(t))

	got, err := svc.RegisterUser(ctx, 42, "second", "Bob", "", "ru")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, 2, users.lookups)
}
