package memory

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swapper/internal/model"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
)

type userRepo struct {
	access
}

func (r *userRepo) Create(ctx context.Context, user *model.User) (err error) {
	v, done := r.begin()
	defer done(&err)

	if user.TelegramID != 0 {
		var taken bool
		v.eachUser(func(u *model.User) {
			taken = taken || u.TelegramID == user.TelegramID
		})
		if taken {
			return repository.ErrDuplicate
		}
	}

	v.nextUserID++
	user.ID = v.nextUserID
	user.CreatedAt = v.now

	v.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) (err error) {
	v, done := r.begin()
	defer done(&err)

	current := v.user(user.ID)
	if current == nil {
		return fmt.Errorf("user not found")
	}

	updated := cloneUser(user)
	updated.TelegramID = current.TelegramID
	updated.CreatedAt = current.CreatedAt
	v.users[user.ID] = updated
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (_ *model.User, err error) {
	v, done := r.begin()
	defer done(&err)

	return cloneUser(v.user(id)), nil
}

func (r *userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (_ *model.User, err error) {
	v, done := r.begin()
	defer done(&err)

	var found *model.User
	v.eachUser(func(u *model.User) {
		if found == nil && u.TelegramID == telegramID {
			found = u
		}
	})
	return cloneUser(found), nil
}

func (r *userRepo) GetByIDs(ctx context.Context, ids ...int64) (_ map[int64]*model.User, err error) {
	v, done := r.begin()
	defer done(&err)

	users := make(map[int64]*model.User, len(ids))
	for _, id := range ids {
		if u := v.user(id); u != nil {
			users[id] = cloneUser(u)
		}
	}
	return users, nil
}
