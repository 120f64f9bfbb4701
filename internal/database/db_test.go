package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/crypto"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, table := range []any{
		&models.Guest{},
		&models.Admin{},
		&models.AuditLog{},
		&models.Broadcast{},
		&models.CacheEntry{},
	} {
		require.True(t, migrator.HasTable(table), "expected table for %T", table)
	}
	require.True(t, migrator.HasIndex(&models.Guest{}, "UniqueCode"))
	require.True(t, migrator.HasIndex(&models.Guest{}, "BoundDeviceID"))
}

func TestAutoMigrateAndSeedCreatesAdminOnce(t *testing.T) {
	db := openTestDB(t)

	seed := AdminSeed{Username: "admin", Password: "password123"}
	require.NoError(t, AutoMigrateAndSeed(db, seed))

	var admin models.Admin
	require.NoError(t, db.Take(&admin, "username = ?", "admin").Error)
	require.True(t, crypto.VerifyPassword(admin.PasswordHash, "password123"))

	// A second start with a different seed password must not reset it.
	require.NoError(t, AutoMigrateAndSeed(db, AdminSeed{Username: "admin", Password: "changed"}))

	var count int64
	require.NoError(t, db.Model(&models.Admin{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.NoError(t, db.Take(&admin, "username = ?", "admin").Error)
	require.True(t, crypto.VerifyPassword(admin.PasswordHash, "password123"))
}

func TestSeedAdminSkipsWithoutUsername(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, SeedAdmin(db, AdminSeed{}))
	require.Error(t, SeedAdmin(db, AdminSeed{Username: "admin"}))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared", MaxOpenConns: 1})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}
