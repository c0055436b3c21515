package persistent

import (
	"context"
	"errors"

	"mao-amiga/services/notification/internal/model"

	"gorm.io/gorm"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type CampaignRepository interface {
	GetCampaignTitle(ctx context.Context, campaignID string) (string, error)
}

type campaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) GetCampaignTitle(ctx context.Context, campaignID string) (string, error) {
	var campaignModel model.CampaignModel
	err := r.db.WithContext(ctx).Select("id", "title").Where("id = ?", campaignID).First(&campaignModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrCampaignNotFound
	}
	if err != nil {
		return "", err
	}
	return campaignModel.Title, nil
}
