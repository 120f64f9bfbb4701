package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/app"
	"github.com/charlesng35/weddingrsvp/internal/handlers/testutil"
)

type invitationPayload struct {
	UniqueCode   string  `json:"unique_code"`
	Name         string  `json:"name"`
	RSVPStatus   string  `json:"rsvp_status"`
	PlusOneCount int     `json:"plus_one_count"`
	PlusOneName  *string `json:"plus_one_name"`
	Notes        *string `json:"notes"`
	Claimed      bool    `json:"claimed"`
	PhoneNumber  *string `json:"phone_number"`
	BoundDevice  *string `json:"bound_device_id"`
}

type claimPayload struct {
	Guest invitationPayload `json:"guest"`
	Bound bool              `json:"bound"`
}

func TestInvitationClaimFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	guest := env.CreateGuest("Ada Lovelace", "0612345678")

	resp := env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      strings.ToLower(guest.UniqueCode),
		"device_id": "device-a",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var claim claimPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &claim)
	require.True(t, claim.Bound)
	require.True(t, claim.Guest.Claimed)
	require.Equal(t, guest.UniqueCode, claim.Guest.UniqueCode)
	require.Nil(t, claim.Guest.PhoneNumber, "guest view must not expose the phone number")
	require.Nil(t, claim.Guest.BoundDevice, "guest view must not expose the device id")

	// Same device again is idempotent.
	resp = env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      guest.UniqueCode,
		"device_id": "device-a",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &claim)
	require.False(t, claim.Bound)

	// Another device is refused.
	resp = env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      guest.UniqueCode,
		"device_id": "device-b",
	}, "")
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	body := testutil.DecodeResponse(t, resp)
	require.False(t, body.Success)
	require.Equal(t, "DEVICE_MISMATCH", body.Error.Code)
}

func TestInvitationClaimUnknownCode(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      "ZZZZZZ",
		"device_id": "device-a",
	}, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
	require.Equal(t, "INVITATION_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestInvitationClaimValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{"code": "AB"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	body := testutil.DecodeResponse(t, resp)
	require.Equal(t, "BAD_REQUEST", body.Error.Code)
	require.Contains(t, body.Error.Message, "device id is required")
}

func TestInvitationValidateDevice(t *testing.T) {
	env := testutil.NewEnv(t)
	guest := env.CreateGuest("Grace Hopper", "0698765432")

	resp := env.Request(http.MethodPost, "/api/invitations/device", map[string]string{"device_id": "nobody"}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := testutil.DecodeResponse(t, resp)
	require.True(t, body.Success)
	require.Equal(t, "null", string(body.Data))

	resp = env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      guest.UniqueCode,
		"device_id": "device-g",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/invitations/device", map[string]string{"device_id": "device-g"}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var view invitationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &view)
	require.Equal(t, guest.UniqueCode, view.UniqueCode)
}

func TestRSVPGetAndSubmit(t *testing.T) {
	env := testutil.NewEnv(t)
	guest := env.CreateGuest("Alan Turing", "0611111111")

	resp := env.Request(http.MethodGet, "/api/rsvp/"+guest.UniqueCode, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var view invitationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &view)
	require.Equal(t, "pending", view.RSVPStatus)

	resp = env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{
		"rsvp_status":    "Attending",
		"plus_one_count": 1,
		"plus_one_name":  "Joan",
		"notes":          "Looking forward to it",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &view)
	require.Equal(t, "attending", view.RSVPStatus)
	require.Equal(t, 1, view.PlusOneCount)
	require.NotNil(t, view.PlusOneName)

	// Resubmitting overwrites and clears omitted optional fields.
	resp = env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{
		"rsvp_status": "declined",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &view)
	require.Equal(t, "declined", view.RSVPStatus)
	require.Zero(t, view.PlusOneCount)
	require.True(t, view.PlusOneName == nil || *view.PlusOneName == "")
	require.True(t, view.Notes == nil || *view.Notes == "")
}

func TestRSVPSubmitRejectsPendingStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	guest := env.CreateGuest("Alan Turing", "0611111111")

	for _, status := range []string{"pending", "maybe"} {
		resp := env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{"rsvp_status": status}, "")
		require.Equal(t, http.StatusBadRequest, resp.Code, status)
	}

	resp := env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{
		"rsvp_status":    "attending",
		"plus_one_count": 9,
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestRSVPUnknownCode(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/rsvp/NOPE99", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "INVITATION_NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestRSVPLockedAfterResponse(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithConfig(func(cfg *app.Config) {
		cfg.RSVP.LockAfterResponse = true
	}))
	guest := env.CreateGuest("Katherine Johnson", "0622222222")

	resp := env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{"rsvp_status": "attending"}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{"rsvp_status": "declined"}, "")
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	require.Equal(t, "RSVP_LOCKED", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestRSVPRequiresClaimingDevice(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithConfig(func(cfg *app.Config) {
		cfg.RSVP.RequireClaim = true
	}))
	guest := env.CreateGuest("Mary Jackson", "0633333333")

	resp := env.Request(http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      guest.UniqueCode,
		"device_id": "device-m",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{
		"rsvp_status": "attending",
		"device_id":   "someone-else",
	}, "")
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	require.Equal(t, "DEVICE_MISMATCH", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{
		"rsvp_status": "attending",
		"device_id":   "device-m",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
