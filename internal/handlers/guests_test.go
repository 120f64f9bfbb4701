package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/handlers/testutil"
)

type adminGuestPayload struct {
	ID            string  `json:"id"`
	UniqueCode    string  `json:"unique_code"`
	Name          string  `json:"name"`
	PhoneNumber   string  `json:"phone_number"`
	Email         *string `json:"email"`
	RSVPStatus    string  `json:"rsvp_status"`
	IsFamily      bool    `json:"is_family"`
	InviteSent    bool    `json:"invite_sent"`
	BoundDeviceID *string `json:"bound_device_id"`
	InviteLink    string  `json:"invite_link"`
}

func TestGuestRoutesRequireAdmin(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/api/guests", "/api/guests/stats", "/api/audit"} {
		resp := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}

	resp := env.Request(http.MethodGet, "/api/guests", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGuestCreateAndList(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()

	resp := env.Request(http.MethodPost, "/api/guests", map[string]any{
		"name":         "Ada Lovelace",
		"phone_number": "+44 7700 900123",
		"email":        "ada@example.com",
		"is_family":    true,
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created adminGuestPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &created)
	require.Len(t, created.UniqueCode, 6)
	require.Equal(t, "pending", created.RSVPStatus)
	require.Equal(t, "https://wedding.test/rsvp/"+created.UniqueCode, created.InviteLink)
	require.True(t, created.IsFamily)

	env.CreateGuest("Grace Hopper", "0698765432")

	resp = env.Request(http.MethodGet, "/api/guests?page=1&per_page=1", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := testutil.DecodeResponse(t, resp)
	require.NotNil(t, body.Meta)
	require.Equal(t, int64(2), body.Meta.Total)

	var page []adminGuestPayload
	testutil.DecodeInto(t, body.Data, &page)
	require.Len(t, page, 1)

	resp = env.Request(http.MethodGet, "/api/guests?search=grace", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &page)
	require.Len(t, page, 1)
	require.Equal(t, "Grace Hopper", page[0].Name)

	resp = env.Request(http.MethodGet, "/api/guests?status=unsure", nil, token)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestGuestCreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()

	resp := env.Request(http.MethodPost, "/api/guests", map[string]any{"name": "No Phone"}, token)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "phone number is required")

	env.CreateGuest("Ada", "0612345678")
	resp = env.Request(http.MethodPost, "/api/guests", map[string]any{
		"name":         "Ada Again",
		"phone_number": "06 1234 5678",
	}, token)
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	require.Equal(t, "DUPLICATE_CONTACT", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestGuestUpdateAndMarkSent(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()
	guest := env.CreateGuest("Alan Turing", "0611111111")

	resp := env.Request(http.MethodPatch, "/api/guests/"+guest.UniqueCode, map[string]any{
		"name":        "Alan M. Turing",
		"rsvp_status": "declined",
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated adminGuestPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &updated)
	require.Equal(t, "Alan M. Turing", updated.Name)
	require.Equal(t, "declined", updated.RSVPStatus)
	require.Equal(t, guest.UniqueCode, updated.UniqueCode)

	resp = env.Request(http.MethodPatch, "/api/guests/"+guest.UniqueCode, map[string]any{"rsvp_status": "perhaps"}, token)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPatch, "/api/guests/UNKNOWN1", map[string]any{"name": "x"}, token)
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/guests/"+guest.UniqueCode+"/mark-sent", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var sent struct {
		InviteSent bool `json:"invite_sent"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &sent)
	require.True(t, sent.InviteSent)

	resp = env.Request(http.MethodPost, "/api/guests/"+guest.UniqueCode+"/mark-sent", map[string]any{"sent": false}, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &sent)
	require.False(t, sent.InviteSent)
}

func TestGuestStats(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()
	guest := env.CreateGuest("Alan Turing", "0611111111")
	env.CreateGuest("Grace Hopper", "0698765432")

	resp := env.Request(http.MethodPost, "/api/rsvp/"+guest.UniqueCode, map[string]any{
		"rsvp_status":    "attending",
		"plus_one_count": 2,
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/guests/stats", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var stats struct {
		Total             int64 `json:"total"`
		Pending           int64 `json:"pending"`
		Attending         int64 `json:"attending"`
		ExpectedAttendees int64 `json:"expected_attendees"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &stats)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.Attending)
	require.Equal(t, int64(3), stats.ExpectedAttendees)
}

func TestGuestUploadCSV(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()

	csv := "Name,Phone,Email,Family\n" +
		"Ada Lovelace,0612345678,ada@example.com,yes\n" +
		"Grace Hopper,0698765432,,no\n" +
		"Missing Phone,,,\n"

	resp := env.Upload("/api/guests/upload-csv", "file", "guests.csv", []byte(csv), token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &result)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 1, result.Skipped)

	resp = env.Upload("/api/guests/upload-csv", "file", "bad.csv", []byte("first,second\n1,2\n"), token)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	broken := "Name,Phone\nLin Yu,0611111111\n\"Unclosed,0622222222\n"
	resp = env.Upload("/api/guests/upload-csv", "file", "broken.csv", []byte(broken), token)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	stats, err := env.Store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)

	resp = env.Upload("/api/guests/upload-csv", "attachment", "guests.csv", []byte(csv), token)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}
