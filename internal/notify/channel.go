package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// ErrNoAddress means the guest has no contact detail for the channel. The
// broadcast counts such guests as skipped rather than failed.
var ErrNoAddress = errors.New("notify: guest has no address for this channel")

// Channel delivers a rendered text message to one guest.
type Channel interface {
	Name() string
	Send(ctx context.Context, guest *models.Guest, message string) error
}

// Render substitutes {name}, {code} and {link} in a broadcast template.
func Render(template string, guest *models.Guest, link string) string {
	if guest == nil {
		return template
	}
	return strings.NewReplacer(
		"{name}", guest.Name,
		"{code}", guest.UniqueCode,
		"{link}", link,
	).Replace(template)
}
