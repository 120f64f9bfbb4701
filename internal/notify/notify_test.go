package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/mail"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw, country, want string
	}{
		{"+972 50-123-4567", "972", "972501234567"},
		{"050-123-4567", "972", "972501234567"},
		{"00447700900123", "972", "447700900123"},
		{"9720501234567", "972", "972501234567"},
		{"(415) 555 0100", "", "4155550100"},
		{"  ", "972", ""},
		{"n/a", "972", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizePhone(tc.raw, tc.country), tc.raw)
	}
}

func TestParseReply(t *testing.T) {
	cases := map[string]struct {
		status models.RSVPStatus
		ok     bool
	}{
		"YES":                  {models.RSVPAttending, true},
		"yes, we'll be there!": {models.RSVPAttending, true},
		"✅":                    {models.RSVPAttending, true},
		"no":                   {models.RSVPDeclined, true},
		"Sorry, not coming":    {models.RSVPDeclined, true},
		"I cannot come, sorry": {models.RSVPDeclined, true},
		"what time is dinner?": {"", false},
		"":                     {"", false},
	}
	for text, want := range cases {
		status, ok := ParseReply(text)
		require.Equal(t, want.ok, ok, text)
		require.Equal(t, want.status, status, text)
	}
}

func TestRender(t *testing.T) {
	guest := &models.Guest{Name: "Dana", UniqueCode: "AB12CD"}
	out := Render("Hi {name}, your code is {code}: {link}", guest, "https://example.test/rsvp/AB12CD")
	require.Equal(t, "Hi Dana, your code is AB12CD: https://example.test/rsvp/AB12CD", out)
	require.Equal(t, "plain {name}", Render("plain {name}", nil, ""))
}

func TestCloudChannelSend(t *testing.T) {
	var got cloudTextMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v17.0/12345/messages", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	ch, err := NewCloudChannel(CloudConfig{
		AccessToken:        "secret",
		PhoneNumberID:      "12345",
		BaseURL:            server.URL,
		DefaultCountryCode: "972",
	}, server.Client())
	require.NoError(t, err)

	err = ch.Send(context.Background(), &models.Guest{PhoneNumber: "050-123-4567"}, "hello")
	require.NoError(t, err)
	require.Equal(t, "whatsapp", got.MessagingProduct)
	require.Equal(t, "972501234567", got.To)
	require.Equal(t, "text", got.Type)
	require.Equal(t, "hello", got.Text.Body)
	require.False(t, got.Text.PreviewURL)
}

func TestCloudChannelErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	}))
	defer server.Close()

	ch, err := NewCloudChannel(CloudConfig{AccessToken: "t", PhoneNumberID: "1", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	err = ch.Send(context.Background(), &models.Guest{PhoneNumber: "+15550100"}, "hello")
	require.ErrorContains(t, err, "Invalid parameter")

	err = ch.Send(context.Background(), &models.Guest{}, "hello")
	require.ErrorIs(t, err, ErrNoAddress)

	_, err = NewCloudChannel(CloudConfig{}, nil)
	require.Error(t, err)
}

type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestEmailChannel(t *testing.T) {
	mailer := &recordingMailer{}
	ch := NewEmailChannel(mailer, "")

	err := ch.Send(context.Background(), &models.Guest{Name: "Dana"}, "hello")
	require.ErrorIs(t, err, ErrNoAddress)

	email := "dana@example.com"
	require.NoError(t, ch.Send(context.Background(), &models.Guest{Email: &email}, "hello"))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, []string{email}, mailer.sent[0].To)
	require.Equal(t, "Wedding update", mailer.sent[0].Subject)
}
