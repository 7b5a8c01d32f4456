package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/slot_swapper/internal/apperror"
	"github.com/Freeeeeet/slot_swapper/internal/repository"
)

// storeErr переводит ошибки хранилища в ошибки приложения.
// Проигранная гонка (условная запись, уникальный индекс, конфликт блокировок) становится Conflict.
func storeErr(op string, err error) error {
	var appErr *apperror.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrStale),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrTxConflict):
		return apperror.Wrap(apperror.KindConflict, err, "%s: concurrent modification, please retry", op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
