package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/registry"
)

func newInvitationService(t *testing.T, store registry.Store, opts ...InvitationOption) *InvitationService {
	t.Helper()
	svc, err := NewInvitationService(store, opts...)
	require.NoError(t, err)
	return svc
}

func TestInvitationClaimFirstDeviceWins(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store)
	ctx := context.Background()

	first, err := svc.Claim(ctx, "  "+guest.UniqueCode+" ", "device-a")
	require.NoError(t, err)
	require.True(t, first.Bound)
	require.True(t, first.Guest.BoundTo("device-a"))

	again, err := svc.Claim(ctx, guest.UniqueCode, "device-a")
	require.NoError(t, err)
	require.False(t, again.Bound)
	require.Equal(t, guest.ID, again.Guest.ID)

	_, err = svc.Claim(ctx, guest.UniqueCode, "device-b")
	require.ErrorIs(t, err, ErrDeviceMismatch)

	_, err = svc.Claim(ctx, "ZZZZZZ", "device-a")
	require.ErrorIs(t, err, ErrInvitationNotFound)

	_, err = svc.Claim(ctx, guest.UniqueCode, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInvitationClaimCaseInsensitive(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store)

	res, err := svc.Claim(context.Background(), strings.ToLower(guest.UniqueCode), "device-a")
	require.NoError(t, err)
	require.Equal(t, guest.UniqueCode, res.Guest.UniqueCode)
}

func TestInvitationConcurrentClaimsBindOnce(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store)

	const devices = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < devices; i++ {
		device := "device-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Claim(context.Background(), guest.UniqueCode, device); err == nil {
				mu.Lock()
				winners = append(winners, device)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	stored, err := store.FindByCode(context.Background(), guest.UniqueCode)
	require.NoError(t, err)
	require.True(t, stored.BoundTo(winners[0]))
}

func TestInvitationValidateDevice(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store)
	ctx := context.Background()

	found, err := svc.ValidateDevice(ctx, "device-a")
	require.NoError(t, err)
	require.Nil(t, found)

	_, err = svc.Claim(ctx, guest.UniqueCode, "device-a")
	require.NoError(t, err)

	found, err = svc.ValidateDevice(ctx, "device-a")
	require.NoError(t, err)
	require.Equal(t, guest.UniqueCode, found.UniqueCode)

	code, err := svc.CodeForDevice(ctx, "device-a")
	require.NoError(t, err)
	require.Equal(t, guest.UniqueCode, code)

	code, err = svc.CodeForDevice(ctx, "")
	require.NoError(t, err)
	require.Empty(t, code)
}

func TestInvitationSubmitRSVP(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	at := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	svc := newInvitationService(t, store, WithInvitationClock(fixedClock(at)))
	ctx := context.Background()

	plusOne := "Noa"
	diet := "vegetarian"
	updated, err := svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{
		Status:              models.RSVPAttending,
		PlusOneCount:        1,
		PlusOneName:         &plusOne,
		DietaryRestrictions: &diet,
	})
	require.NoError(t, err)
	require.Equal(t, models.RSVPAttending, updated.RSVPStatus)
	require.Equal(t, 1, updated.PlusOneCount)
	require.Equal(t, "Noa", *updated.PlusOneName)
	require.Equal(t, "vegetarian", *updated.DietaryRestrictions)
	require.NotNil(t, updated.RespondedAt)
	require.True(t, at.Equal(*updated.RespondedAt))

	// Last write wins and omitted text fields are cleared.
	updated, err = svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{Status: models.RSVPDeclined, PlusOneCount: 1})
	require.NoError(t, err)
	require.Equal(t, models.RSVPDeclined, updated.RSVPStatus)
	require.Equal(t, 1, updated.PlusOneCount)
	require.Nil(t, updated.PlusOneName)
	require.Nil(t, updated.DietaryRestrictions)
}

func TestInvitationSubmitRSVPValidation(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store, WithMaxPlusOnes(2))
	ctx := context.Background()

	_, err := svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{Status: models.RSVPPending})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{Status: models.RSVPAttending, PlusOneCount: 3})
	var inputErr *registry.InputError
	require.ErrorAs(t, err, &inputErr)
	require.Equal(t, "plus_one_count", inputErr.Field)

	_, err = svc.SubmitRSVP(ctx, "NOPE00", RSVPInput{Status: models.RSVPAttending})
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestInvitationSubmitRSVPLock(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store, WithRSVPLock(true))
	ctx := context.Background()

	_, err := svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{Status: models.RSVPAttending})
	require.NoError(t, err)

	_, err = svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{Status: models.RSVPAttending})
	require.ErrorIs(t, err, ErrRSVPLocked)
	_, err = svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{Status: models.RSVPDeclined})
	require.ErrorIs(t, err, ErrRSVPLocked)
}

func TestInvitationSubmitRSVPLockConcurrentFirstAnswers(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store, WithRSVPLock(true))

	const submitters = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []models.RSVPStatus
		locked   int
	)
	for i := 0; i < submitters; i++ {
		status := models.RSVPAttending
		if i%2 == 1 {
			status = models.RSVPDeclined
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitRSVP(context.Background(), guest.UniqueCode, RSVPInput{Status: status})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted = append(accepted, status)
			case errors.Is(err, ErrRSVPLocked):
				locked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, accepted, 1)
	require.Equal(t, submitters-1, locked)

	stored, err := store.FindByCode(context.Background(), guest.UniqueCode)
	require.NoError(t, err)
	require.Equal(t, accepted[0], stored.RSVPStatus)
}

func TestInvitationSubmitRSVPRequiresClaim(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "0501234567")
	svc := newInvitationService(t, store, WithClaimRequiredForRSVP(true))
	ctx := context.Background()

	_, err := svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{DeviceID: "device-a", Status: models.RSVPAttending})
	require.ErrorIs(t, err, ErrDeviceMismatch)

	_, err = svc.Claim(ctx, guest.UniqueCode, "device-a")
	require.NoError(t, err)

	_, err = svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{DeviceID: "device-b", Status: models.RSVPAttending})
	require.ErrorIs(t, err, ErrDeviceMismatch)

	_, err = svc.SubmitRSVP(ctx, guest.UniqueCode, RSVPInput{DeviceID: "device-a", Status: models.RSVPAttending})
	require.NoError(t, err)
}

func TestInvitationRecordReply(t *testing.T) {
	store := newMemoryStore(t)
	guest := mustCreateGuest(t, store, "Dana", "050-123-4567")
	svc := newInvitationService(t, store, WithReplyCountryCode("+972"))
	ctx := context.Background()

	updated, err := svc.RecordReply(ctx, "972501234567", models.RSVPDeclined)
	require.NoError(t, err)
	require.Equal(t, guest.UniqueCode, updated.UniqueCode)
	require.Equal(t, models.RSVPDeclined, updated.RSVPStatus)

	svc.HandleReply(ctx, "972501234567", "yes!")
	stored, err := store.FindByCode(ctx, guest.UniqueCode)
	require.NoError(t, err)
	require.Equal(t, models.RSVPAttending, stored.RSVPStatus)

	svc.HandleReply(ctx, "972501234567", "what should I wear?")
	stored, err = store.FindByCode(ctx, guest.UniqueCode)
	require.NoError(t, err)
	require.Equal(t, models.RSVPAttending, stored.RSVPStatus)

	_, err = svc.RecordReply(ctx, "15550100", models.RSVPAttending)
	require.ErrorIs(t, err, ErrInvitationNotFound)
}
