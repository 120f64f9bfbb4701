package registry

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates no guest matches the code or device.
	ErrNotFound = errors.New("registry: guest not found")
	// ErrDeviceMismatch indicates the code is already bound to another device.
	ErrDeviceMismatch = errors.New("registry: code bound to another device")
	// ErrDuplicateContact indicates another guest already uses the phone number.
	ErrDuplicateContact = errors.New("registry: duplicate contact")
	// ErrInvalidInput indicates a malformed guest record.
	ErrInvalidInput = errors.New("registry: invalid input")
	// ErrCodeSpaceExhausted is returned when no free code was found after
	// the configured number of attempts.
	ErrCodeSpaceExhausted = errors.New("registry: unable to allocate unique code")
	// ErrStatusChanged indicates a conditional update found a different RSVP status.
	ErrStatusChanged = errors.New("registry: rsvp status changed")
)

// InputError names the field that made a guest record invalid.
// errors.Is(err, ErrInvalidInput) holds for every InputError.
type InputError struct {
	Field  string
	Reason string
}

// Invalid builds an InputError.
func Invalid(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

func (e *InputError) Error() string {
	return "registry: invalid input: " + e.Field + " " + e.Reason
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// isUniqueConstraintError detects uniqueness violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") || strings.Contains(lower, "duplicate")
}
