package persistent

import (
	"context"
	"errors"
	"strings"
	"time"

	"mao-amiga/services/campaign/internal/entity"
	"mao-amiga/services/campaign/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *entity.Campaign) error
	GetByID(ctx context.Context, id string) (*entity.Campaign, error)
	Update(ctx context.Context, campaign *entity.Campaign) error
	UpdateStatus(ctx context.Context, id string, status entity.CampaignStatus, updatedAt time.Time) error
	DeleteWithSupporters(ctx context.Context, id string) error
	ListPublic(ctx context.Context, searchTerm string, limit int) ([]*entity.Campaign, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*entity.Campaign, error)
	GetProfile(ctx context.Context, userID string) (*entity.Profile, error)
	CreateSupporter(ctx context.Context, supporter *entity.Supporter) error
	ListSupporters(ctx context.Context, campaignID string, limit int) ([]entity.Supporter, error)
	RecalculateRaised(ctx context.Context, campaignID string) (decimal.Decimal, error)
}

type campaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, campaign *entity.Campaign) error {
	campaignModel := ToCampaignModel(campaign)
	if err := r.db.WithContext(ctx).Create(campaignModel).Error; err != nil {
		return err
	}
	*campaign = *ToCampaignEntity(campaignModel)
	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*entity.Campaign, error) {
	var campaignModel model.CampaignModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaignModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToCampaignEntity(&campaignModel), nil
}

// Update writes the organizer-editable columns only. raised, status and
// creator_id are never touched here.
func (r *campaignRepository) Update(ctx context.Context, campaign *entity.Campaign) error {
	result := r.db.WithContext(ctx).Model(&model.CampaignModel{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{
			"title":            campaign.Title,
			"description":      campaign.Description,
			"goal":             campaign.Goal,
			"pix_key":          campaign.PixKey,
			"beneficiary_name": campaign.BeneficiaryName,
			"image_url":        campaign.ImageURL,
			"updated_at":       campaign.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, id string, status entity.CampaignStatus, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.CampaignModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *campaignRepository) DeleteWithSupporters(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", id).Delete(&model.SupporterModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.CampaignModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return entity.ErrNotFound
		}
		return nil
	})
}

// ListPublic returns active campaigns, newest first. searchTerm is expected
// to be lower-cased already and is matched as a substring of the title or
// the description.
func (r *campaignRepository) ListPublic(ctx context.Context, searchTerm string, limit int) ([]*entity.Campaign, error) {
	var campaignModels []model.CampaignModel
	query := r.db.WithContext(ctx).
		Where("status = ?", string(entity.StatusActive)).
		Order("created_at DESC")

	if searchTerm != "" {
		pattern := likePattern(searchTerm)
		query = query.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&campaignModels).Error; err != nil {
		return nil, err
	}

	campaigns := make([]*entity.Campaign, len(campaignModels))
	for i := range campaignModels {
		campaigns[i] = ToCampaignEntity(&campaignModels[i])
	}
	return campaigns, nil
}

func (r *campaignRepository) ListByCreator(ctx context.Context, creatorID string) ([]*entity.Campaign, error) {
	var campaignModels []model.CampaignModel
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&campaignModels).Error
	if err != nil {
		return nil, err
	}

	campaigns := make([]*entity.Campaign, len(campaignModels))
	for i := range campaignModels {
		campaigns[i] = ToCampaignEntity(&campaignModels[i])
	}
	return campaigns, nil
}

// GetProfile returns nil without error when the user never saved a profile.
func (r *campaignRepository) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	var profileModel model.ProfileModel
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&profileModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ToProfileEntity(&profileModel), nil
}

// CreateSupporter inserts the supporter only while the campaign is active.
// The guard row update holds the campaign row lock until commit, so a
// concurrent UpdateStatus either lands before it (ErrCampaignClosed) or
// waits for the insert.
func (r *campaignRepository) CreateSupporter(ctx context.Context, supporter *entity.Supporter) error {
	supporterModel := ToSupporterModel(supporter)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := tx.Exec(
			`UPDATE campaigns SET status = status WHERE id = ? AND status = ?`,
			supporter.CampaignID, string(entity.StatusActive),
		)
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.CampaignModel{}).Where("id = ?", supporter.CampaignID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return entity.ErrNotFound
			}
			return entity.ErrCampaignClosed
		}
		return tx.Create(supporterModel).Error
	})
	if err != nil {
		return err
	}
	*supporter = ToSupporterEntity(supporterModel)
	return nil
}

func (r *campaignRepository) ListSupporters(ctx context.Context, campaignID string, limit int) ([]entity.Supporter, error) {
	var supporterModels []model.SupporterModel
	query := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&supporterModels).Error; err != nil {
		return nil, err
	}

	supporters := make([]entity.Supporter, len(supporterModels))
	for i := range supporterModels {
		supporters[i] = ToSupporterEntity(&supporterModels[i])
	}
	return supporters, nil
}

// RecalculateRaised sets raised to the sum of the campaign's supporter
// amounts in a single statement, so concurrent donations cannot lose
// updates, and returns the stored value.
func (r *campaignRepository) RecalculateRaised(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	db := r.db.WithContext(ctx)
	result := db.Exec(
		`UPDATE campaigns SET raised = (SELECT COALESCE(SUM(amount), 0) FROM supporters WHERE campaign_id = ?), updated_at = ? WHERE id = ?`,
		campaignID, time.Now().UTC(), campaignID,
	)
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, entity.ErrNotFound
	}

	var campaignModel model.CampaignModel
	if err := db.Select("raised").Where("id = ?", campaignID).First(&campaignModel).Error; err != nil {
		return decimal.Zero, err
	}
	return campaignModel.Raised, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
