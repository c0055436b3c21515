package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserModel struct {
	ID        string        `gorm:"type:uuid;primary_key"`
	Email     string        `gorm:"uniqueIndex;not null"`
	Password  string        `gorm:"not null"`
	Role      string        `gorm:"type:varchar(20);default:'user'"`
	IsActive  bool          `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Profile   *ProfileModel `gorm:"foreignKey:ID;references:ID"`
}

func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// ProfileModel shares its primary key with UserModel.
type ProfileModel struct {
	ID        string  `gorm:"type:uuid;primary_key"`
	Name      string  `gorm:"type:varchar(255);not null;default:''"`
	AvatarURL *string `gorm:"type:varchar(500)"`
	UpdatedAt time.Time
}

func (ProfileModel) TableName() string {
	return "profiles"
}
