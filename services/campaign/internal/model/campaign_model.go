package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CampaignModel struct {
	ID              string          `gorm:"type:uuid;primary_key" json:"id"`
	CreatorID       string          `gorm:"type:uuid;not null;index" json:"creator_id"`
	Title           string          `gorm:"type:varchar(255);not null" json:"title"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Goal            decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"goal"`
	Raised          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"raised"`
	PixKey          string          `gorm:"type:varchar(255);not null" json:"pix_key"`
	BeneficiaryName string          `gorm:"type:varchar(255);not null" json:"beneficiary_name"`
	ImageURL        *string         `gorm:"type:varchar(500)" json:"image_url"`
	Status          string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

func (c *CampaignModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
