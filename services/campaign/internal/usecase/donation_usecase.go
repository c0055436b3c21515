package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/money"
	"mao-amiga/pkg/queue"
	"mao-amiga/services/campaign/internal/entity"
	"mao-amiga/services/campaign/internal/repo/persistent"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	defaultRecalcAttempts = 3
	defaultRecalcBackoff  = 50 * time.Millisecond
)

type DonationUseCase interface {
	RecordDonation(ctx context.Context, campaignID string, input entity.DonationInput, proof *entity.File) (*entity.Supporter, error)
	ReconcileRaised(ctx context.Context, campaignID string) (decimal.Decimal, error)
	ReconcileRaisedForOwner(ctx context.Context, ownerID, campaignID string) (decimal.Decimal, error)
	ListSupporters(ctx context.Context, campaignID string, limit int) ([]entity.Supporter, error)
	HandleLedgerTask(ctx context.Context, task queue.Task) error
}

type donationUseCase struct {
	campaignRepo   persistent.CampaignRepository
	storage        ObjectStorage
	publisher      TaskPublisher
	redisClient    *redis.Client
	logger         *logger.Logger
	recalcAttempts int
	recalcBackoff  time.Duration
}

// NewDonationUseCase accepts a nil publisher and a nil redis client; the
// queue and the cache are then skipped.
func NewDonationUseCase(
	campaignRepo persistent.CampaignRepository,
	storage ObjectStorage,
	publisher TaskPublisher,
	redisClient *redis.Client,
	logger *logger.Logger,
) DonationUseCase {
	return &donationUseCase{
		campaignRepo:   campaignRepo,
		storage:        storage,
		publisher:      publisher,
		redisClient:    redisClient,
		logger:         logger,
		recalcAttempts: defaultRecalcAttempts,
		recalcBackoff:  defaultRecalcBackoff,
	}
}

func (uc *donationUseCase) RecordDonation(ctx context.Context, campaignID string, input entity.DonationInput, proof *entity.File) (*entity.Supporter, error) {
	amount, err := money.ParseAmount(input.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", entity.ErrValidation, err)
	}
	if err := validateProof(proof); err != nil {
		return nil, err
	}

	campaign, err := uc.campaignRepo.GetByID(ctx, campaignID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
	}
	if err != nil {
		uc.logger.Error("Failed to load campaign %s: %v", campaignID, err)
		return nil, fmt.Errorf("%w: failed to load campaign", entity.ErrPersistence)
	}
	if !campaign.IsActive() {
		return nil, fmt.Errorf("%w: campaign %s is %s", entity.ErrCampaignClosed, campaignID, campaign.Status)
	}

	supporter := &entity.Supporter{
		CampaignID: campaignID,
		Name:       entity.AnonymousDonorName,
		Amount:     amount,
		CreatedAt:  time.Now().UTC(),
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		supporter.Name = name
	}
	if message := strings.TrimSpace(input.Message); message != "" {
		supporter.Message = &message
	}
	if input.DonorID != "" {
		donorID := input.DonorID
		supporter.DonorID = &donorID
	}

	var proofKey string
	if proof != nil {
		proofKey = proofObjectKey(proof)
		contentType := proof.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		proofURL, err := uc.storage.UploadFile(proofKey, proof.Body, contentType)
		if err != nil {
			uc.logger.Error("Failed to upload proof for campaign %s: %v", campaignID, err)
			return nil, fmt.Errorf("%w: %v", entity.ErrStorage, err)
		}
		supporter.ProofURL = &proofURL
	}

	if err := uc.campaignRepo.CreateSupporter(ctx, supporter); err != nil {
		if proofKey != "" {
			if delErr := uc.storage.DeleteFile(proofKey); delErr != nil {
				uc.logger.Error("Orphaned upload left in storage: key=%s: %v", proofKey, delErr)
			}
		}
		switch {
		case errors.Is(err, entity.ErrCampaignClosed):
			uc.logger.Warn("Donation refused, campaign %s closed before insert", campaignID)
			return nil, fmt.Errorf("%w: campaign %s", entity.ErrCampaignClosed, campaignID)
		case errors.Is(err, entity.ErrNotFound):
			return nil, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
		}
		uc.logger.Error("Failed to record donation for campaign %s: %v", campaignID, err)
		return nil, fmt.Errorf("%w: failed to record donation", entity.ErrPersistence)
	}

	uc.logger.Info("Donation recorded: campaign=%s supporter=%s amount=%s", campaignID, supporter.ID, amount.StringFixed(money.Scale))

	recorded := queue.Task{
		Type:        queue.TaskDonationRecorded,
		CampaignID:  campaignID,
		SupporterID: supporter.ID,
		CreatorID:   campaign.CreatorID,
		Amount:      amount.StringFixed(money.Scale),
		Priority:    5,
	}

	if _, err := uc.recalculateWithRetry(ctx, campaignID); err != nil {
		uc.logger.Error("Raised total is stale for campaign %s after donation %s: %v", campaignID, supporter.ID, err)
		uc.publish(queue.Task{
			Type:        queue.TaskReconcileRaised,
			CampaignID:  campaignID,
			SupporterID: supporter.ID,
			Priority:    8,
		})
		invalidateCampaign(ctx, uc.redisClient, uc.logger, campaignID)
		// The supporter row is committed, so the organizer is still told.
		uc.publish(recorded)
		return supporter, fmt.Errorf("%w: donation recorded but campaign total is pending reconciliation", entity.ErrPersistence)
	}

	invalidateCampaign(ctx, uc.redisClient, uc.logger, campaignID)
	uc.publish(recorded)

	return supporter, nil
}

func (uc *donationUseCase) ReconcileRaised(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	raised, err := uc.campaignRepo.RecalculateRaised(ctx, campaignID)
	if errors.Is(err, entity.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
	}
	if err != nil {
		uc.logger.Error("Failed to reconcile raised for campaign %s: %v", campaignID, err)
		return decimal.Zero, fmt.Errorf("%w: failed to reconcile campaign total", entity.ErrPersistence)
	}

	invalidateCampaign(ctx, uc.redisClient, uc.logger, campaignID)
	return raised, nil
}

func (uc *donationUseCase) ReconcileRaisedForOwner(ctx context.Context, ownerID, campaignID string) (decimal.Decimal, error) {
	if ownerID == "" {
		return decimal.Zero, entity.ErrUnauthenticated
	}

	campaign, err := uc.campaignRepo.GetByID(ctx, campaignID)
	if errors.Is(err, entity.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to load campaign", entity.ErrPersistence)
	}
	if !campaign.OwnedBy(ownerID) {
		return decimal.Zero, fmt.Errorf("%w: only the organizer can reconcile this campaign", entity.ErrPermission)
	}

	return uc.ReconcileRaised(ctx, campaignID)
}

func (uc *donationUseCase) ListSupporters(ctx context.Context, campaignID string, limit int) ([]entity.Supporter, error) {
	if _, err := uc.campaignRepo.GetByID(ctx, campaignID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: campaign %s", entity.ErrNotFound, campaignID)
		}
		return nil, fmt.Errorf("%w: failed to load campaign", entity.ErrPersistence)
	}

	supporters, err := uc.campaignRepo.ListSupporters(ctx, campaignID, limit)
	if err != nil {
		uc.logger.Error("Failed to list supporters for campaign %s: %v", campaignID, err)
		return nil, fmt.Errorf("%w: failed to list supporters", entity.ErrPersistence)
	}
	return supporters, nil
}

// HandleLedgerTask is the queue consumer callback. Returning an error
// requeues the task.
func (uc *donationUseCase) HandleLedgerTask(ctx context.Context, task queue.Task) error {
	switch task.Type {
	case queue.TaskReconcileRaised:
		raised, err := uc.ReconcileRaised(ctx, task.CampaignID)
		if errors.Is(err, entity.ErrNotFound) {
			uc.logger.Warn("Dropping reconcile task for deleted campaign %s", task.CampaignID)
			return nil
		}
		if err != nil {
			return err
		}
		uc.logger.Info("Reconciled campaign %s: raised=%s", task.CampaignID, raised.StringFixed(money.Scale))
		return nil
	default:
		uc.logger.Warn("Ignoring unknown ledger task type=%s", task.Type)
		return nil
	}
}

func (uc *donationUseCase) recalculateWithRetry(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 1; attempt <= uc.recalcAttempts; attempt++ {
		raised, err := uc.campaignRepo.RecalculateRaised(ctx, campaignID)
		if err == nil {
			return raised, nil
		}
		lastErr = err
		uc.logger.Warn("Recalculating raised for campaign %s failed (attempt %d/%d): %v", campaignID, attempt, uc.recalcAttempts, err)

		if attempt == uc.recalcAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		case <-time.After(time.Duration(attempt) * uc.recalcBackoff):
		}
	}
	return decimal.Zero, lastErr
}

func (uc *donationUseCase) publish(task queue.Task) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishTask(task); err != nil {
		uc.logger.Error("[LEDGER QUEUE] Failed to publish %s for campaign %s: %v", task.Type, task.CampaignID, err)
	}
}

func validateProof(proof *entity.File) error {
	if proof == nil || proof.ContentType == "" {
		return nil
	}
	if strings.HasPrefix(proof.ContentType, "image/") || proof.ContentType == "application/pdf" {
		return nil
	}
	return fmt.Errorf("%w: receipt must be an image or a PDF, got %s", entity.ErrValidation, proof.ContentType)
}

func proofObjectKey(proof *entity.File) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("proofs/%d_%s%s", time.Now().UnixMilli(), suffix, proof.Extension())
}
