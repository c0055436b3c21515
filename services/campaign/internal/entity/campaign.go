package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	StatusActive    CampaignStatus = "active"
	StatusCompleted CampaignStatus = "completed"
)

const (
	AnonymousDonorName = "Doador Anônimo"
	DefaultCreatorName = "Organizador"
	DeleteConfirmation = "DELETAR"
)

type Campaign struct {
	ID              string          `json:"id"`
	CreatorID       string          `json:"creator_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Goal            decimal.Decimal `json:"goal"`
	Raised          decimal.Decimal `json:"raised"`
	PixKey          string          `json:"pix_key"`
	BeneficiaryName string          `json:"beneficiary_name"`
	ImageURL        *string         `json:"image_url"`
	Status          CampaignStatus  `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (c *Campaign) IsActive() bool {
	return c.Status == StatusActive
}

func (c *Campaign) OwnedBy(userID string) bool {
	return userID != "" && c.CreatorID == userID
}

type Supporter struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Message    *string         `json:"message"`
	DonorID    *string         `json:"donor_id"`
	ProofURL   *string         `json:"proof_url"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Profile struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// CampaignInput carries the raw form values for create and update. Goal is
// kept as typed by the organizer and parsed during validation.
type CampaignInput struct {
	Title           string
	Description     string
	Goal            string
	PixKey          string
	BeneficiaryName string
}

type DonationInput struct {
	Amount  string
	Name    string
	Message string
	DonorID string
}

type CampaignFilter struct {
	SearchTerm string
	Limit      int
}
