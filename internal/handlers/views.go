package handlers

import (
	"time"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// invitationView is what a guest sees of their own record. The bound
// device id and phone number stay server side.
type invitationView struct {
	UniqueCode          string            `json:"unique_code"`
	Name                string            `json:"name"`
	Email               *string           `json:"email"`
	RSVPStatus          models.RSVPStatus `json:"rsvp_status"`
	PlusOneCount        int               `json:"plus_one_count"`
	PlusOneName         *string           `json:"plus_one_name"`
	IsFamily            bool              `json:"is_family"`
	DietaryRestrictions *string           `json:"dietary_restrictions"`
	GuestQuestion       *string           `json:"guest_question"`
	Notes               *string           `json:"notes"`
	Claimed             bool              `json:"claimed"`
	RespondedAt         *time.Time        `json:"responded_at"`
}

func newInvitationView(g *models.Guest) *invitationView {
	if g == nil {
		return nil
	}
	return &invitationView{
		UniqueCode:          g.UniqueCode,
		Name:                g.Name,
		Email:               g.Email,
		RSVPStatus:          g.RSVPStatus,
		PlusOneCount:        g.PlusOneCount,
		PlusOneName:         g.PlusOneName,
		IsFamily:            g.IsFamily,
		DietaryRestrictions: g.DietaryRestrictions,
		GuestQuestion:       g.GuestQuestion,
		Notes:               g.Notes,
		Claimed:             g.Claimed(),
		RespondedAt:         g.RespondedAt,
	}
}

// adminGuestView is the full record plus the link to send to the guest.
type adminGuestView struct {
	models.Guest
	InviteLink string `json:"invite_link"`
}

func newAdminGuestViews(guests []models.Guest, link func(string) string) []adminGuestView {
	views := make([]adminGuestView, 0, len(guests))
	for _, g := range guests {
		views = append(views, adminGuestView{Guest: g, InviteLink: link(g.UniqueCode)})
	}
	return views
}
