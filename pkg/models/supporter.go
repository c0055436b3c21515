package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Supporter struct {
	ID         string          `gorm:"type:uuid;primary_key" json:"id"`
	CampaignID string          `gorm:"type:uuid;not null;index" json:"campaign_id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Message    *string         `gorm:"type:text" json:"message"`
	DonorID    *string         `gorm:"type:uuid" json:"donor_id"`
	ProofURL   *string         `gorm:"type:varchar(500)" json:"proof_url"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (s *Supporter) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
