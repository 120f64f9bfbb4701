package registry

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// NormalizeCode trims whitespace and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PhoneKey reduces a phone number to its digits.
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func buildGuest(in NewGuest) (*models.Guest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Invalid("name", "is required")
	}
	if in.PlusOneCount < 0 {
		return nil, Invalid("plus_one_count", "must not be negative")
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	return &models.Guest{
		Name:                name,
		PhoneNumber:         phone,
		PhoneKey:            PhoneKey(phone),
		Email:               optionalText(in.Email),
		RSVPStatus:          models.RSVPPending,
		PlusOneCount:        in.PlusOneCount,
		IsFamily:            in.IsFamily,
		DietaryRestrictions: optionalText(in.DietaryRestrictions),
		Notes:               optionalText(in.Notes),
	}, nil
}

// applyPatch merges patch into guest. It reports whether the phone changed.
// columns lists the guest columns a patch writes.
func (p Patch) columns() []string {
	var cols []string
	add := func(set bool, names ...string) {
		if set {
			cols = append(cols, names...)
		}
	}
	add(p.Name != nil, "name")
	add(p.PhoneNumber != nil, "phone_number", "phone_key")
	add(p.Email != nil, "email")
	add(p.RSVPStatus != nil, "rsvp_status")
	add(p.PlusOneCount != nil, "plus_one_count")
	add(p.PlusOneName != nil, "plus_one_name")
	add(p.IsFamily != nil, "is_family")
	add(p.DietaryRestrictions != nil, "dietary_restrictions")
	add(p.GuestQuestion != nil, "guest_question")
	add(p.Notes != nil, "notes")
	add(p.InviteSent != nil, "invite_sent", "invite_sent_at")
	add(p.RespondedAt != nil, "responded_at")
	return cols
}

func applyPatch(guest *models.Guest, patch Patch, now time.Time) (bool, error) {
	phoneChanged := false

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return false, Invalid("name", "is required")
		}
		guest.Name = name
	}
	if patch.PhoneNumber != nil {
		phone := strings.TrimSpace(*patch.PhoneNumber)
		phoneChanged = PhoneKey(phone) != guest.PhoneKey
		guest.PhoneNumber = phone
		guest.PhoneKey = PhoneKey(phone)
	}
	if patch.Email != nil {
		guest.Email = optionalText(patch.Email)
	}
	if patch.RSVPStatus != nil {
		if !patch.RSVPStatus.Valid() {
			return false, Invalid("rsvp_status", fmt.Sprintf("%q is not a known status", *patch.RSVPStatus))
		}
		guest.RSVPStatus = *patch.RSVPStatus
	}
	if patch.PlusOneCount != nil {
		if *patch.PlusOneCount < 0 {
			return false, Invalid("plus_one_count", "must not be negative")
		}
		guest.PlusOneCount = *patch.PlusOneCount
	}
	if patch.PlusOneName != nil {
		guest.PlusOneName = optionalText(patch.PlusOneName)
	}
	if patch.IsFamily != nil {
		guest.IsFamily = *patch.IsFamily
	}
	if patch.DietaryRestrictions != nil {
		guest.DietaryRestrictions = optionalText(patch.DietaryRestrictions)
	}
	if patch.GuestQuestion != nil {
		guest.GuestQuestion = optionalText(patch.GuestQuestion)
	}
	if patch.Notes != nil {
		guest.Notes = optionalText(patch.Notes)
	}
	if patch.InviteSent != nil {
		switch {
		case *patch.InviteSent && !guest.InviteSent:
			guest.InviteSentAt = &now
		case !*patch.InviteSent:
			guest.InviteSentAt = nil
		}
		guest.InviteSent = *patch.InviteSent
	}
	if patch.RespondedAt != nil {
		at := *patch.RespondedAt
		guest.RespondedAt = &at
	}

	return phoneChanged, nil
}
