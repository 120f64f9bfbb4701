package services

import (
	"context"
	"errors"

	"github.com/charlesng35/weddingrsvp/internal/registry"
)

var (
	// ErrInvitationNotFound indicates no guest matches the supplied code.
	ErrInvitationNotFound = errors.New("invitation: not found")
	// ErrDeviceMismatch indicates the code is bound to a different device.
	ErrDeviceMismatch = errors.New("invitation: bound to another device")
	// ErrRSVPLocked indicates the guest already answered and resubmission is disabled.
	ErrRSVPLocked = errors.New("rsvp: already submitted")
	// ErrInvalidCredentials indicates an unknown admin or wrong password.
	ErrInvalidCredentials = errors.New("admin: invalid credentials")
	// ErrInvalidCSV indicates an upload that cannot be parsed as a guest list.
	ErrInvalidCSV = errors.New("import: invalid csv")

	ErrInvalidInput     = registry.ErrInvalidInput
	ErrDuplicateContact = registry.ErrDuplicateContact
)

// translateStoreError maps registry sentinels onto service errors. Input
// errors pass through unchanged so callers can still read the field name.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrNotFound):
		return ErrInvitationNotFound
	case errors.Is(err, registry.ErrDeviceMismatch):
		return ErrDeviceMismatch
	}
	return err
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
