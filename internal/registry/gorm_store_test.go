package registry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/database/testutil"
	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/internal/registry"
)

// interleaver runs one queued statement right after the next guest read,
// standing in for a write that commits between Update's read and its write.
type interleaver struct {
	mu   sync.Mutex
	next func(tx *gorm.DB) error
	err  error
}

func newInterleaver(t *testing.T, db *gorm.DB) *interleaver {
	t.Helper()
	il := &interleaver{}
	err := db.Callback().Query().After("gorm:query").Register("test:interleave", func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement.Table != "guests" {
			return
		}
		il.mu.Lock()
		fn := il.next
		il.next = nil
		il.mu.Unlock()
		if fn != nil {
			il.err = fn(tx.Session(&gorm.Session{NewDB: true}))
		}
	})
	require.NoError(t, err)
	return il
}

func (il *interleaver) after(fn func(tx *gorm.DB) error) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.next = fn
}

func newGormStore(t *testing.T) (*registry.GormStore, *interleaver) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	il := newInterleaver(t, db)
	store, err := registry.NewGormStore(db)
	require.NoError(t, err)
	return store, il
}

func TestGormUpdateKeepsBindingMadeDuringUpdate(t *testing.T) {
	store, il := newGormStore(t)
	ctx := context.Background()

	guest, err := store.Create(ctx, registry.NewGuest{Name: "Noa"})
	require.NoError(t, err)

	il.after(func(tx *gorm.DB) error {
		return tx.Exec(
			"UPDATE guests SET bound_device_id = ?, claimed_at = ? WHERE unique_code = ? AND bound_device_id IS NULL",
			"device-1", time.Now(), guest.UniqueCode,
		).Error
	})

	sent := true
	updated, err := store.Update(ctx, guest.UniqueCode, registry.Patch{InviteSent: &sent})
	require.NoError(t, err)
	require.NoError(t, il.err)
	require.True(t, updated.InviteSent)
	require.True(t, updated.BoundTo("device-1"))

	reloaded, err := store.FindByCode(ctx, guest.UniqueCode)
	require.NoError(t, err)
	require.True(t, reloaded.BoundTo("device-1"))
	require.NotNil(t, reloaded.ClaimedAt)
	require.True(t, reloaded.InviteSent)

	found, err := store.FindByDevice(ctx, "device-1")
	require.NoError(t, err)
	require.Equal(t, guest.UniqueCode, found.UniqueCode)

	_, err = store.BindDevice(ctx, guest.UniqueCode, "device-2")
	require.ErrorIs(t, err, registry.ErrDeviceMismatch)
}

func TestGormUpdateKeepsUntouchedColumns(t *testing.T) {
	store, il := newGormStore(t)
	ctx := context.Background()

	guest, err := store.Create(ctx, registry.NewGuest{Name: "Ido"})
	require.NoError(t, err)

	il.after(func(tx *gorm.DB) error {
		return tx.Exec(
			"UPDATE guests SET rsvp_status = ?, plus_one_count = ? WHERE unique_code = ?",
			models.RSVPAttending, 2, guest.UniqueCode,
		).Error
	})

	sent := true
	_, err = store.Update(ctx, guest.UniqueCode, registry.Patch{InviteSent: &sent})
	require.NoError(t, err)
	require.NoError(t, il.err)

	reloaded, err := store.FindByCode(ctx, guest.UniqueCode)
	require.NoError(t, err)
	require.Equal(t, models.RSVPAttending, reloaded.RSVPStatus)
	require.Equal(t, 2, reloaded.PlusOneCount)
	require.True(t, reloaded.InviteSent)
}

func TestGormConditionalUpdateLosesToEarlierAnswer(t *testing.T) {
	store, il := newGormStore(t)
	ctx := context.Background()

	guest, err := store.Create(ctx, registry.NewGuest{Name: "Tal"})
	require.NoError(t, err)

	il.after(func(tx *gorm.DB) error {
		return tx.Exec("UPDATE guests SET rsvp_status = ? WHERE unique_code = ?",
			models.RSVPDeclined, guest.UniqueCode).Error
	})

	attending := models.RSVPAttending
	pending := models.RSVPPending
	_, err = store.Update(ctx, guest.UniqueCode, registry.Patch{RSVPStatus: &attending, IfStatus: &pending})
	require.ErrorIs(t, err, registry.ErrStatusChanged)
	require.NoError(t, il.err)

	reloaded, err := store.FindByCode(ctx, guest.UniqueCode)
	require.NoError(t, err)
	require.Equal(t, models.RSVPDeclined, reloaded.RSVPStatus)
}
