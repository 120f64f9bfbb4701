package registry

import (
	"context"
	"time"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// Store is the guest registry. Implementations must make BindDevice a
// single compare-and-set so that concurrent claims of one code cannot both
// succeed with different devices.
type Store interface {
	Create(ctx context.Context, in NewGuest) (*models.Guest, error)
	List(ctx context.Context, opts ListOptions) ([]models.Guest, int64, error)
	FindByCode(ctx context.Context, code string) (*models.Guest, error)
	FindByDevice(ctx context.Context, deviceID string) (*models.Guest, error)
	FindByPhone(ctx context.Context, phone string) (*models.Guest, error)
	Update(ctx context.Context, code string, patch Patch) (*models.Guest, error)
	BindDevice(ctx context.Context, code, deviceID string) (*models.Guest, error)
	Stats(ctx context.Context) (Stats, error)
}

// NewGuest is the admin supplied part of a guest record.
type NewGuest struct {
	Name                string
	PhoneNumber         string
	Email               *string
	IsFamily            bool
	PlusOneCount        int
	DietaryRestrictions *string
	Notes               *string
}

// Patch lists the mutable fields of a guest. Nil fields are left alone.
// For optional text fields a pointer to "" clears the value. The code and
// id are deliberately absent.
type Patch struct {
	Name                *string
	PhoneNumber         *string
	Email               *string
	RSVPStatus          *models.RSVPStatus
	PlusOneCount        *int
	PlusOneName         *string
	IsFamily            *bool
	DietaryRestrictions *string
	GuestQuestion       *string
	Notes               *string
	InviteSent          *bool
	RespondedAt         *time.Time

	// IfStatus makes the update conditional on the stored RSVP status.
	// A mismatch fails with ErrStatusChanged and writes nothing.
	IfStatus *models.RSVPStatus
}

// ListOptions pages and filters List.
type ListOptions struct {
	Offset int
	Limit  int
	Status models.RSVPStatus
	Search string
}

// Stats summarises the guest list for the dashboard.
type Stats struct {
	Total             int64 `json:"total"`
	Pending           int64 `json:"pending"`
	Attending         int64 `json:"attending"`
	Declined          int64 `json:"declined"`
	InvitesSent       int64 `json:"invites_sent"`
	Claimed           int64 `json:"claimed"`
	ExpectedAttendees int64 `json:"expected_attendees"`
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

func (o ListOptions) normalised() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	return o
}
