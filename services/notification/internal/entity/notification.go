package entity

import (
	"errors"
	"time"
)

const TypeDonation = "donation"

var ErrValidation = errors.New("validation failed")

// Notification is an alert shown on an organizer's dashboard.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CampaignID string    `json:"campaign_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Amount     string    `json:"amount,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
