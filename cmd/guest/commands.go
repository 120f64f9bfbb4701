package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/charlesng35/weddingrsvp/internal/guestsession"
	"github.com/charlesng35/weddingrsvp/pkg/client"
)

type command func(ctx context.Context, env *environment, args []string) error

var commands = map[string]command{
	"status": statusCommand,
	"claim":  claimCommand,
	"unlock": claimCommand,
	"show":   showCommand,
	"rsvp":   rsvpCommand,
	"logout": logoutCommand,
	"lock":   logoutCommand,
}

func statusCommand(ctx context.Context, env *environment, _ []string) error {
	fmt.Fprintf(env.out, "device:     %s\n", env.session.DeviceID())

	if !env.session.Authorized() {
		fmt.Fprintln(env.out, "invitation: none (open your invitation link or run `claim <code>`)")
		return nil
	}

	code := env.session.CurrentCode()
	fmt.Fprintf(env.out, "invitation: %s\n", code)

	inv, err := env.api.GetInvitation(ctx, code)
	if err != nil {
		fmt.Fprintf(env.out, "server:     unreachable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(env.out, "guest:      %s\n", inv.Name)
	fmt.Fprintf(env.out, "rsvp:       %s\n", inv.RSVPStatus)
	return nil
}

func claimCommand(ctx context.Context, env *environment, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: claim <code>")
	}
	code := strings.ToUpper(strings.TrimSpace(args[0]))

	inv, bound, err := env.api.Claim(ctx, code, env.session.DeviceID())
	switch {
	case errors.Is(err, client.ErrDeviceMismatch):
		return fmt.Errorf("invitation %s is already open on another device; contact the couple if this is yours", code)
	case errors.Is(err, client.ErrNotFound):
		return fmt.Errorf("invitation %s not found; check the code", code)
	case err != nil:
		return err
	}

	if err := env.session.Unlock(ctx, inv.UniqueCode); err != nil {
		return err
	}

	if bound {
		fmt.Fprintf(env.out, "Welcome %s, invitation %s is now linked to this device.\n", inv.Name, inv.UniqueCode)
	} else {
		fmt.Fprintf(env.out, "Welcome back %s.\n", inv.Name)
	}
	return nil
}

func showCommand(ctx context.Context, env *environment, _ []string) error {
	if err := env.session.Require("invitation"); err != nil {
		return lockedError(err)
	}

	inv, err := env.api.GetInvitation(ctx, env.session.CurrentCode())
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "Dear %s\n", inv.Name)
	fmt.Fprintf(env.out, "code:       %s\n", inv.UniqueCode)
	fmt.Fprintf(env.out, "rsvp:       %s\n", inv.RSVPStatus)
	fmt.Fprintf(env.out, "plus ones:  %d\n", inv.PlusOneCount)
	if inv.PlusOneName != nil {
		fmt.Fprintf(env.out, "plus one:   %s\n", *inv.PlusOneName)
	}
	if inv.DietaryRestrictions != nil {
		fmt.Fprintf(env.out, "dietary:    %s\n", *inv.DietaryRestrictions)
	}
	if inv.RespondedAt != nil {
		fmt.Fprintf(env.out, "answered:   %s\n", inv.RespondedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func rsvpCommand(ctx context.Context, env *environment, args []string) error {
	if err := env.session.Require("rsvp"); err != nil {
		return lockedError(err)
	}

	fs := pflag.NewFlagSet("rsvp", pflag.ContinueOnError)
	fs.SetOutput(env.out)
	status := fs.String("status", "", "attending or declined")
	plusOnes := fs.Int("plus-ones", 0, "Number of additional guests")
	plusOneName := fs.String("plus-one-name", "", "Name of the additional guest")
	dietary := fs.String("dietary", "", "Dietary restrictions")
	question := fs.String("question", "", "A question for the couple")
	notes := fs.String("notes", "", "Anything else")
	email := fs.String("email", "", "Email for updates")
	if err := fs.Parse(args); err != nil {
		return err
	}

	answer := strings.ToLower(strings.TrimSpace(*status))
	if answer != "attending" && answer != "declined" {
		return errors.New("--status must be attending or declined")
	}

	inv, err := env.api.SubmitRSVP(ctx, env.session.CurrentCode(), client.RSVP{
		DeviceID:            env.session.DeviceID(),
		Status:              answer,
		PlusOneCount:        *plusOnes,
		PlusOneName:         optional(*plusOneName),
		Email:               optional(*email),
		DietaryRestrictions: optional(*dietary),
		GuestQuestion:       optional(*question),
		Notes:               optional(*notes),
	})
	if errors.Is(err, client.ErrRSVPLocked) {
		return errors.New("your answer was already recorded; contact the couple to change it")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "Thank you %s, your answer (%s) has been recorded.\n", inv.Name, inv.RSVPStatus)
	return nil
}

func logoutCommand(ctx context.Context, env *environment, _ []string) error {
	if err := env.session.Lock(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.out, "Invitation closed on this device.")
	return nil
}

func lockedError(err error) error {
	var locked *guestsession.LockedError
	if errors.As(err, &locked) {
		return fmt.Errorf("no invitation unlocked on this device; run `claim <code>` first (%s)", locked.Redirect)
	}
	return err
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
