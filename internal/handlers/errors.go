package handlers

import (
	stdErrors "errors"

	"github.com/charlesng35/weddingrsvp/internal/registry"
	"github.com/charlesng35/weddingrsvp/internal/services"
	"github.com/charlesng35/weddingrsvp/pkg/errors"
)

// toAppError maps service failures onto API errors. Anything unrecognised
// becomes the generic retryable failure.
func toAppError(err error) *errors.AppError {
	var inputErr *registry.InputError
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, services.ErrInvitationNotFound):
		return errors.ErrInvitationNotFound
	case stdErrors.Is(err, services.ErrDeviceMismatch):
		return errors.ErrDeviceMismatch
	case stdErrors.Is(err, services.ErrRSVPLocked):
		return errors.ErrRSVPLocked
	case stdErrors.Is(err, services.ErrDuplicateContact):
		return errors.ErrDuplicateContact
	case stdErrors.Is(err, services.ErrInvalidCredentials):
		return errors.ErrInvalidCredentials
	case stdErrors.As(err, &inputErr):
		return errors.NewBadRequest(prettifyFieldName(inputErr.Field) + " " + inputErr.Reason)
	case stdErrors.Is(err, services.ErrInvalidCSV):
		return errors.NewBadRequest(err.Error())
	}
	return errors.FromError(err)
}
