package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/database/testutil"
	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/notify"
)

func TestBroadcastFansOutWithoutTouchingGuests(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := newMemoryStore(t)

	a := mustCreateGuest(t, store, "Avi", "0501112222")
	b := mustCreateGuest(t, store, "Bat", "0503334444")
	c := mustCreateGuest(t, store, "Chen", "")

	whatsapp := &stubChannel{
		name: "whatsapp",
		failOn: map[string]error{
			b.UniqueCode: errors.New("socket closed"),
			c.UniqueCode: notify.ErrNoAddress,
		},
	}
	email := &stubChannel{name: "email"}

	svc, err := NewBroadcastService(store, db, []notify.Channel{whatsapp, email},
		WithBroadcastConcurrency(2),
		WithBroadcastSiteURL("https://wedding.test"))
	require.NoError(t, err)
	require.Equal(t, []string{"whatsapp", "email"}, svc.Channels())

	before, _, err := store.List(context.Background(), registryAll())
	require.NoError(t, err)

	record, err := svc.Broadcast(context.Background(), "Hi {name}, RSVP at {link}", "admin")
	require.NoError(t, err)
	require.Equal(t, 3, record.Recipients)
	require.Equal(t, 4, record.Delivered)
	require.Equal(t, 1, record.Failed)
	require.Equal(t, 1, record.Skipped)
	require.Equal(t, "admin", record.CreatedBy)

	require.Equal(t, "Hi Avi, RSVP at https://wedding.test/rsvp/"+a.UniqueCode, whatsapp.sent[a.UniqueCode])
	require.Len(t, email.sent, 3)

	var stored models.Broadcast
	require.NoError(t, db.First(&stored, "id = ?", record.ID).Error)
	require.Equal(t, []string{"whatsapp", "email"}, []string(stored.Channels))

	after, _, err := store.List(context.Background(), registryAll())
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestBroadcastRejectsEmptyMessage(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewBroadcastService(newMemoryStore(t), db, nil)
	require.NoError(t, err)

	_, err = svc.Broadcast(context.Background(), "   ", "admin")
	require.ErrorIs(t, err, ErrInvalidInput)
}
