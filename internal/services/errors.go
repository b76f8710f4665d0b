package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "leavedesk/internal/errors"
)

// persistenceError wraps an infrastructure error from the database. AppErrors
// raised inside a transaction pass through unchanged.
func persistenceError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrPersistenceFailure, err)
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and anything else to a
// persistence failure.
func notFoundOr(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return persistenceError(err)
}
