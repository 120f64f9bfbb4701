package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records who did what to which invitation.
type AuditLog struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	Actor     string            `gorm:"size:128;index" json:"actor"`
	Action    string            `gorm:"size:64;not null;index" json:"action"`
	Resource  string            `gorm:"size:128;index" json:"resource"`
	Result    string            `gorm:"size:32;not null" json:"result"`
	IPAddress string            `gorm:"size:64" json:"ip_address"`
	UserAgent string            `gorm:"size:255" json:"user_agent"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
