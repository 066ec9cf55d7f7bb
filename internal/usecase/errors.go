package usecase

import (
	"context"
	stderrors "errors"

	"lugares/internal/domain/repository"
	"lugares/pkg/errors"
)

// storeError keeps domain errors as they are and turns everything the store
// raised into a retryable StoreUnavailable.
func storeError(message string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.StoreUnavailable(message, err)
}

func isNotFound(err error) bool {
	return stderrors.Is(err, repository.ErrDocumentNotFound)
}
