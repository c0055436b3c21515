package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/money"
	"mao-amiga/services/campaign/internal/entity"
	"mao-amiga/services/campaign/internal/repo/persistent"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	PublicSupporterLimit = 5
	campaignCacheTTL     = 5 * time.Minute
	cacheGenerationTTL   = 24 * time.Hour
)

type CampaignUseCase interface {
	CreateCampaign(ctx context.Context, ownerID string, input entity.CampaignInput, image *entity.File) (*entity.Campaign, error)
	UpdateCampaign(ctx context.Context, ownerID, campaignID string, input entity.CampaignInput, image *entity.File, removeImage bool) (*entity.Campaign, error)
	FinalizeCampaign(ctx context.Context, ownerID, campaignID string) (*entity.Campaign, error)
	DeleteCampaign(ctx context.Context, ownerID, campaignID, confirmation string) error
	GetCampaignForOwner(ctx context.Context, ownerID, campaignID string) (*entity.CampaignDetail, error)
	GetPublicCampaign(ctx context.Context, campaignID string) (*entity.CampaignDetail, error)
	ListPublicCampaigns(ctx context.Context, filter entity.CampaignFilter) ([]*entity.Campaign, error)
	ListOwnerCampaigns(ctx context.Context, ownerID string) (*entity.OwnerDashboard, error)
}

type campaignUseCase struct {
	campaignRepo        persistent.CampaignRepository
	storage             ObjectStorage
	redisClient         *redis.Client
	placeholderImageURL string
	logger              *logger.Logger
}

func NewCampaignUseCase(
	campaignRepo persistent.CampaignRepository,
	storage ObjectStorage,
	redisClient *redis.Client,
	placeholderImageURL string,
	logger *logger.Logger,
) CampaignUseCase {
	return &campaignUseCase{
		campaignRepo:        campaignRepo,
		storage:             storage,
		redisClient:         redisClient,
		placeholderImageURL: placeholderImageURL,
		logger:              logger,
	}
}

func (uc *campaignUseCase) CreateCampaign(ctx context.Context, ownerID string, input entity.CampaignInput, image *entity.File) (*entity.Campaign, error) {
	if ownerID == "" {
		return nil, entity.ErrUnauthenticated
	}

	fields, goal, err := validateCampaignInput(input)
	if err != nil {
		return nil, err
	}
	if err := validateImage(image); err != nil {
		return nil, err
	}

	var imageURL *string
	var imageKey string
	if image != nil {
		imageKey = campaignImageKey(ownerID, image)
		url, err := uc.upload(imageKey, image, "image/jpeg")
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	now := time.Now().UTC()
	campaign := &entity.Campaign{
		CreatorID:       ownerID,
		Title:           fields.Title,
		Description:     fields.Description,
		Goal:            goal,
		Raised:          decimal.Zero,
		PixKey:          fields.PixKey,
		BeneficiaryName: fields.BeneficiaryName,
		ImageURL:        imageURL,
		Status:          entity.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := uc.campaignRepo.Create(ctx, campaign); err != nil {
		uc.logger.Error("Failed to create campaign for owner %s: %v", ownerID, err)
		if imageKey != "" {
			uc.discardUpload(imageKey)
		}
		return nil, fmt.Errorf("%w: failed to save campaign", entity.ErrPersistence)
	}

	uc.logger.Info("Campaign created: id=%s owner=%s goal=%s", campaign.ID, ownerID, campaign.Goal.StringFixed(money.Scale))
	return campaign, nil
}

func (uc *campaignUseCase) UpdateCampaign(ctx context.Context, ownerID, campaignID string, input entity.CampaignInput, image *entity.File, removeImage bool) (*entity.Campaign, error) {
	campaign, err := uc.loadOwned(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}

	fields, goal, err := validateCampaignInput(input)
	if err != nil {
		return nil, err
	}
	if err := validateImage(image); err != nil {
		return nil, err
	}

	var imageKey string
	switch {
	case image != nil:
		imageKey = campaignImageKey(ownerID, image)
		url, err := uc.upload(imageKey, image, "image/jpeg")
		if err != nil {
			return nil, err
		}
		campaign.ImageURL = &url
	case removeImage:
		campaign.ImageURL = nil
	}

	campaign.Title = fields.Title
	campaign.Description = fields.Description
	campaign.Goal = goal
	campaign.PixKey = fields.PixKey
	campaign.BeneficiaryName = fields.BeneficiaryName
	campaign.UpdatedAt = time.Now().UTC()

	if err := uc.campaignRepo.Update(ctx, campaign); err != nil {
		if imageKey != "" {
			uc.discardUpload(imageKey)
		}
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
		}
		uc.logger.Error("Failed to update campaign %s: %v", campaignID, err)
		return nil, fmt.Errorf("%w: failed to update campaign", entity.ErrPersistence)
	}

	uc.invalidate(ctx, campaignID)
	return campaign, nil
}

func (uc *campaignUseCase) FinalizeCampaign(ctx context.Context, ownerID, campaignID string) (*entity.Campaign, error) {
	campaign, err := uc.loadOwned(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status == entity.StatusCompleted {
		return campaign, nil
	}

	now := time.Now().UTC()
	if err := uc.campaignRepo.UpdateStatus(ctx, campaignID, entity.StatusCompleted, now); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
		}
		uc.logger.Error("Failed to finalize campaign %s: %v", campaignID, err)
		return nil, fmt.Errorf("%w: failed to finalize campaign", entity.ErrPersistence)
	}

	campaign.Status = entity.StatusCompleted
	campaign.UpdatedAt = now
	uc.invalidate(ctx, campaignID)
	uc.logger.Info("Campaign finalized: id=%s raised=%s", campaignID, campaign.Raised.StringFixed(money.Scale))
	return campaign, nil
}

func (uc *campaignUseCase) DeleteCampaign(ctx context.Context, ownerID, campaignID, confirmation string) error {
	if _, err := uc.loadOwned(ctx, ownerID, campaignID); err != nil {
		return err
	}

	if strings.TrimSpace(confirmation) != entity.DeleteConfirmation {
		return fmt.Errorf("%w: type %s to confirm deletion", entity.ErrValidation, entity.DeleteConfirmation)
	}

	if err := uc.campaignRepo.DeleteWithSupporters(ctx, campaignID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
		}
		uc.logger.Error("Failed to delete campaign %s: %v", campaignID, err)
		return fmt.Errorf("%w: failed to delete campaign", entity.ErrPersistence)
	}

	uc.invalidate(ctx, campaignID)
	uc.logger.Info("Campaign deleted: id=%s owner=%s", campaignID, ownerID)
	return nil
}

func (uc *campaignUseCase) GetCampaignForOwner(ctx context.Context, ownerID, campaignID string) (*entity.CampaignDetail, error) {
	campaign, err := uc.loadOwned(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}
	return uc.buildDetail(ctx, campaign, 0)
}

// GetPublicCampaign reads the cache generation before the database. A
// write that invalidates while the detail is being built bumps the
// generation, so the detail built here lands under a key no later reader
// asks for.
func (uc *campaignUseCase) GetPublicCampaign(ctx context.Context, campaignID string) (*entity.CampaignDetail, error) {
	gen, cacheable := uc.cacheGeneration(ctx, campaignID)
	if cacheable {
		if detail := uc.cached(ctx, campaignID, gen); detail != nil {
			return detail, nil
		}
	}

	campaign, err := uc.load(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	detail, err := uc.buildDetail(ctx, campaign, PublicSupporterLimit)
	if err != nil {
		return nil, err
	}

	if cacheable {
		uc.cache(ctx, detail, gen)
	}
	return detail, nil
}

func (uc *campaignUseCase) ListPublicCampaigns(ctx context.Context, filter entity.CampaignFilter) ([]*entity.Campaign, error) {
	limit := filter.Limit
	if limit < 0 {
		limit = 0
	}

	campaigns, err := uc.campaignRepo.ListPublic(ctx, normalizeSearchTerm(filter.SearchTerm), limit)
	if err != nil {
		uc.logger.Error("Failed to list public campaigns: %v", err)
		return nil, fmt.Errorf("%w: failed to list campaigns", entity.ErrPersistence)
	}
	return campaigns, nil
}

func (uc *campaignUseCase) ListOwnerCampaigns(ctx context.Context, ownerID string) (*entity.OwnerDashboard, error) {
	if ownerID == "" {
		return nil, entity.ErrUnauthenticated
	}

	campaigns, err := uc.campaignRepo.ListByCreator(ctx, ownerID)
	if err != nil {
		uc.logger.Error("Failed to list campaigns for owner %s: %v", ownerID, err)
		return nil, fmt.Errorf("%w: failed to list campaigns", entity.ErrPersistence)
	}

	dashboard := &entity.OwnerDashboard{Campaigns: make([]entity.Campaign, 0, len(campaigns))}
	total := decimal.Zero
	for _, c := range campaigns {
		dashboard.Campaigns = append(dashboard.Campaigns, *c)
		total = total.Add(c.Raised)
		if c.IsActive() {
			dashboard.ActiveCount++
		}
	}
	dashboard.TotalRaised = total.StringFixed(money.Scale)
	dashboard.TotalRaisedFormatted = money.FormatBRL(total)
	return dashboard, nil
}

func (uc *campaignUseCase) load(ctx context.Context, campaignID string) (*entity.Campaign, error) {
	campaign, err := uc.campaignRepo.GetByID(ctx, campaignID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
	}
	if err != nil {
		uc.logger.Error("Failed to load campaign %s: %v", campaignID, err)
		return nil, fmt.Errorf("%w: failed to load campaign", entity.ErrPersistence)
	}
	return campaign, nil
}

func (uc *campaignUseCase) loadOwned(ctx context.Context, ownerID, campaignID string) (*entity.Campaign, error) {
	if ownerID == "" {
		return nil, entity.ErrUnauthenticated
	}

	campaign, err := uc.load(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if !campaign.OwnedBy(ownerID) {
		uc.logger.Warn("User %s tried to manage campaign %s owned by %s", ownerID, campaignID, campaign.CreatorID)
		return nil, fmt.Errorf("%w: only the organizer can manage this campaign", entity.ErrPermission)
	}
	return campaign, nil
}

func (uc *campaignUseCase) buildDetail(ctx context.Context, campaign *entity.Campaign, supporterLimit int) (*entity.CampaignDetail, error) {
	supporters, err := uc.campaignRepo.ListSupporters(ctx, campaign.ID, supporterLimit)
	if err != nil {
		uc.logger.Error("Failed to list supporters for campaign %s: %v", campaign.ID, err)
		return nil, fmt.Errorf("%w: failed to load supporters", entity.ErrPersistence)
	}

	detail := &entity.CampaignDetail{
		Campaign:              *campaign,
		ImageURLOrPlaceholder: uc.placeholderImageURL,
		CreatorName:           entity.DefaultCreatorName,
		Percentage:            money.Percentage(campaign.Raised, campaign.Goal),
		GoalFormatted:         money.FormatBRL(campaign.Goal),
		RaisedFormatted:       money.FormatBRL(campaign.Raised),
		Supporters:            supporters,
	}
	if campaign.ImageURL != nil && *campaign.ImageURL != "" {
		detail.ImageURLOrPlaceholder = *campaign.ImageURL
	}

	profile, err := uc.campaignRepo.GetProfile(ctx, campaign.CreatorID)
	if err != nil {
		uc.logger.Warn("Failed to load profile %s: %v", campaign.CreatorID, err)
	}
	if profile != nil {
		if name := strings.TrimSpace(profile.Name); name != "" {
			detail.CreatorName = name
		}
		detail.CreatorAvatarURL = profile.AvatarURL
	}

	return detail, nil
}

func (uc *campaignUseCase) upload(key string, file *entity.File, fallbackContentType string) (string, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = fallbackContentType
	}

	url, err := uc.storage.UploadFile(key, file.Body, contentType)
	if err != nil {
		uc.logger.Error("Failed to upload %s: %v", key, err)
		return "", fmt.Errorf("%w: %v", entity.ErrStorage, err)
	}
	return url, nil
}

func (uc *campaignUseCase) discardUpload(key string) {
	if err := uc.storage.DeleteFile(key); err != nil {
		uc.logger.Error("Orphaned upload left in storage: key=%s: %v", key, err)
	}
}

func campaignCacheKey(campaignID string, gen int64) string {
	return fmt.Sprintf("campaign:%s:v%d", campaignID, gen)
}

func campaignGenerationKey(campaignID string) string {
	return fmt.Sprintf("campaign:%s:gen", campaignID)
}

// cacheGeneration returns false when the cache is disabled or unreachable.
func (uc *campaignUseCase) cacheGeneration(ctx context.Context, campaignID string) (int64, bool) {
	if uc.redisClient == nil {
		return 0, false
	}

	gen, err := uc.redisClient.Get(ctx, campaignGenerationKey(campaignID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		uc.logger.Warn("Failed to read cache generation for campaign %s: %v", campaignID, err)
		return 0, false
	}
	return gen, true
}

func (uc *campaignUseCase) cached(ctx context.Context, campaignID string, gen int64) *entity.CampaignDetail {
	data, err := uc.redisClient.Get(ctx, campaignCacheKey(campaignID, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			uc.logger.Warn("Failed to read campaign cache %s: %v", campaignID, err)
		}
		return nil
	}

	var detail entity.CampaignDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		uc.logger.Warn("Discarding corrupt campaign cache %s: %v", campaignID, err)
		return nil
	}
	return &detail
}

func (uc *campaignUseCase) cache(ctx context.Context, detail *entity.CampaignDetail, gen int64) {
	data, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := uc.redisClient.Set(ctx, campaignCacheKey(detail.ID, gen), data, campaignCacheTTL).Err(); err != nil {
		uc.logger.Warn("Failed to cache campaign %s: %v", detail.ID, err)
	}
}

func (uc *campaignUseCase) invalidate(ctx context.Context, campaignID string) {
	invalidateCampaign(ctx, uc.redisClient, uc.logger, campaignID)
}

// invalidateCampaign bumps the campaign's cache generation. Entries cached
// under older generations are never read again and expire on their own.
func invalidateCampaign(ctx context.Context, redisClient *redis.Client, log *logger.Logger, campaignID string) {
	if redisClient == nil {
		return
	}
	key := campaignGenerationKey(campaignID)
	_, err := redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, cacheGenerationTTL)
		return nil
	})
	if err != nil {
		log.Warn("Failed to invalidate campaign cache %s: %v", campaignID, err)
	}
}

type campaignFields struct {
	Title           string
	Description     string
	PixKey          string
	BeneficiaryName string
}

func validateCampaignInput(input entity.CampaignInput) (campaignFields, decimal.Decimal, error) {
	fields := campaignFields{
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		PixKey:          strings.TrimSpace(input.PixKey),
		BeneficiaryName: strings.TrimSpace(input.BeneficiaryName),
	}

	switch {
	case fields.Title == "":
		return fields, decimal.Zero, fmt.Errorf("%w: title is required", entity.ErrValidation)
	case fields.Description == "":
		return fields, decimal.Zero, fmt.Errorf("%w: description is required", entity.ErrValidation)
	case fields.BeneficiaryName == "":
		return fields, decimal.Zero, fmt.Errorf("%w: beneficiary name is required", entity.ErrValidation)
	case fields.PixKey == "":
		return fields, decimal.Zero, fmt.Errorf("%w: pix key is required", entity.ErrValidation)
	}

	goal, err := money.ParseAmount(input.Goal)
	if err != nil {
		return fields, decimal.Zero, fmt.Errorf("%w: goal: %v", entity.ErrValidation, err)
	}
	return fields, goal, nil
}

func validateImage(image *entity.File) error {
	if image == nil || image.ContentType == "" {
		return nil
	}
	if !strings.HasPrefix(image.ContentType, "image/") {
		return fmt.Errorf("%w: cover must be an image, got %s", entity.ErrValidation, image.ContentType)
	}
	return nil
}

func campaignImageKey(ownerID string, image *entity.File) string {
	return fmt.Sprintf("campaigns/%s/%d-%s%s", ownerID, time.Now().UnixMilli(), uuid.New().String(), image.Extension())
}

// A Caser is stateful, so one is built per call.
func normalizeSearchTerm(term string) string {
	return cases.Lower(language.BrazilianPortuguese).String(strings.TrimSpace(term))
}
