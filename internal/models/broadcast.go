package models

import "gorm.io/datatypes"

// Broadcast is the record left behind by an admin announcement. Sending a
// broadcast never modifies guests; this row is its only trace.
type Broadcast struct {
	BaseModel
	Message    string                      `gorm:"type:text;not null" json:"message"`
	Channels   datatypes.JSONSlice[string] `json:"channels"`
	Recipients int                         `gorm:"not null;default:0" json:"recipients"`
	Delivered  int                         `gorm:"not null;default:0" json:"delivered"`
	Failed     int                         `gorm:"not null;default:0" json:"failed"`
	Skipped    int                         `gorm:"not null;default:0" json:"skipped"`
	CreatedBy  string                      `gorm:"size:64" json:"created_by"`
}
