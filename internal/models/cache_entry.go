package models

import "time"

// CacheEntry is a key/value row. A nil ExpiresAt never expires.
type CacheEntry struct {
	Key       string     `gorm:"primaryKey;size:256"`
	Value     []byte     `gorm:"type:blob"`
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
