package models

import "time"

// Admin is an operator allowed to manage the guest list.
type Admin struct {
	BaseModel
	Username     string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}
