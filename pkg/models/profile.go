package models

import "time"

// Profile shares its primary key with User.
type Profile struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	AvatarURL *string   `gorm:"type:varchar(500)" json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}
