package models

import (
	"strings"
	"time"
)

// RSVPStatus is the guest's attendance answer.
type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPAttending RSVPStatus = "attending"
	RSVPDeclined  RSVPStatus = "declined"
)

// Valid reports whether s is one of the known statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAttending, RSVPDeclined:
		return true
	}
	return false
}

// Answered reports whether s is a final answer a guest can submit.
func (s RSVPStatus) Answered() bool {
	return s == RSVPAttending || s == RSVPDeclined
}

// ParseRSVPStatus accepts any letter case and surrounding whitespace.
func ParseRSVPStatus(value string) (RSVPStatus, bool) {
	status := RSVPStatus(strings.ToLower(strings.TrimSpace(value)))
	return status, status.Valid()
}

// Guest is one invitee and their invitation code.
//
// UniqueCode and ID never change after creation. BoundDeviceID moves from
// nil to a value exactly once and is never cleared by guest-facing flows.
type Guest struct {
	BaseModel
	UniqueCode          string     `gorm:"size:16;uniqueIndex;not null" json:"unique_code"`
	Name                string     `gorm:"size:255;not null" json:"name"`
	PhoneNumber         string     `gorm:"size:32" json:"phone_number"`
	PhoneKey            string     `gorm:"size:32;index" json:"-"` // digits only, for lookups
	Email               *string    `gorm:"size:255" json:"email"`
	RSVPStatus          RSVPStatus `gorm:"size:16;not null;default:pending;index" json:"rsvp_status"`
	PlusOneCount        int        `gorm:"not null;default:0" json:"plus_one_count"`
	PlusOneName         *string    `gorm:"size:255" json:"plus_one_name"`
	IsFamily            bool       `gorm:"not null;default:false" json:"is_family"`
	DietaryRestrictions *string    `gorm:"type:text" json:"dietary_restrictions"`
	GuestQuestion       *string    `gorm:"type:text" json:"guest_question"`
	Notes               *string    `gorm:"type:text" json:"notes"`
	InviteSent          bool       `gorm:"not null;default:false" json:"invite_sent"`
	InviteSentAt        *time.Time `json:"invite_sent_at"`
	BoundDeviceID       *string    `gorm:"size:128;index" json:"bound_device_id"`
	ClaimedAt           *time.Time `json:"claimed_at"`
	RespondedAt         *time.Time `json:"responded_at"`
}

// Claimed reports whether a device has been bound to the code.
func (g *Guest) Claimed() bool {
	return g != nil && g.BoundDeviceID != nil && *g.BoundDeviceID != ""
}

// BoundTo reports whether the code is bound to deviceID.
func (g *Guest) BoundTo(deviceID string) bool {
	return g.Claimed() && *g.BoundDeviceID == deviceID
}

// ExpectedAttendees is 1 + plus-ones for attending guests, otherwise 0.
func (g *Guest) ExpectedAttendees() int {
	if g == nil || g.RSVPStatus != RSVPAttending {
		return 0
	}
	return 1 + g.PlusOneCount
}
