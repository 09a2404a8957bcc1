// Package impl contains the implementation of the application's business logic.
package impl

import (
	domainerrors "lecturehall/internal/domain/errors"

	"github.com/pkg/errors"
)

// storageFailure reports an unexpected metadata or blob store failure as ErrStorage.
// Errors that already carry a business kind pass through with context added.
func storageFailure(err error, message string) error {
	var baseErr *domainerrors.BaseError
	if errors.As(err, &baseErr) {
		return errors.Wrap(err, message)
	}

	return errors.Wrapf(domainerrors.ErrStorage, "%s: %v", message, err)
}
