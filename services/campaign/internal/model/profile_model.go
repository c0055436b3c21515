package model

import "time"

// ProfileModel is owned by the auth service; campaigns only read it.
type ProfileModel struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	AvatarURL *string   `gorm:"type:varchar(500)" json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}
