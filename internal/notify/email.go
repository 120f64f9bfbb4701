package notify

import (
	"context"
	"strings"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/mail"
)

// EmailChannel delivers broadcasts by email to guests that left an address.
type EmailChannel struct {
	mailer  mail.Mailer
	subject string
}

// NewEmailChannel wraps mailer. subject is used for every message.
func NewEmailChannel(mailer mail.Mailer, subject string) *EmailChannel {
	if strings.TrimSpace(subject) == "" {
		subject = "Wedding update"
	}
	return &EmailChannel{mailer: mailer, subject: subject}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, guest *models.Guest, message string) error {
	if guest.Email == nil || strings.TrimSpace(*guest.Email) == "" {
		return ErrNoAddress
	}
	return c.mailer.Send(ctx, mail.Message{
		To:      []string{*guest.Email},
		Subject: c.subject,
		Body:    message,
	})
}
