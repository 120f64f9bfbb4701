package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/crypto"
)

// AdminSeed describes the operator account created on first start.
type AdminSeed struct {
	Username string
	Password string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Guest{},
		&models.Admin{},
		&models.AuditLog{},
		&models.Broadcast{},
		&models.CacheEntry{},
	)
}

// SeedAdmin creates the admin account when missing. An existing account
// keeps its password even if the configured seed changes.
func SeedAdmin(db *gorm.DB, seed AdminSeed) error {
	username := strings.TrimSpace(seed.Username)
	if username == "" {
		return nil
	}
	if seed.Password == "" {
		return errors.New("admin seed password is empty")
	}

	var count int64
	if err := db.Model(&models.Admin{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(seed.Password)
	if err != nil {
		return err
	}

	admin := models.Admin{Username: username, PasswordHash: hash}
	return db.Where(models.Admin{Username: username}).Attrs(admin).FirstOrCreate(&models.Admin{}).Error
}
