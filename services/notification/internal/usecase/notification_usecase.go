package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/money"
	"mao-amiga/pkg/queue"
	"mao-amiga/services/notification/internal/entity"
	"mao-amiga/services/notification/internal/repo/persistent"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type NotificationUseCase interface {
	HandleLedgerTask(ctx context.Context, task queue.Task) error
	GetNotifications(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
	ClearNotifications(ctx context.Context, userID string) error
}

type notificationUseCase struct {
	campaignRepo persistent.CampaignRepository
	store        persistent.NotificationStore
	logger       *logger.Logger
	now          func() time.Time
}

func NewNotificationUseCase(campaignRepo persistent.CampaignRepository, store persistent.NotificationStore, logger *logger.Logger) NotificationUseCase {
	return &notificationUseCase{
		campaignRepo: campaignRepo,
		store:        store,
		logger:       logger,
		now:          time.Now,
	}
}

// HandleLedgerTask turns a donation_recorded task into an alert for the
// campaign organizer. Other task types are acknowledged and ignored.
func (uc *notificationUseCase) HandleLedgerTask(ctx context.Context, task queue.Task) error {
	if task.Type != queue.TaskDonationRecorded {
		uc.logger.Debug("[NOTIFICATION] Ignoring task type=%s", task.Type)
		return nil
	}
	if task.CreatorID == "" {
		uc.logger.Warn("[NOTIFICATION] Dropping donation task without creator, campaign_id=%s", task.CampaignID)
		return nil
	}

	amount, err := decimal.NewFromString(task.Amount)
	if err != nil {
		uc.logger.Warn("[NOTIFICATION] Dropping donation task with bad amount %q: %v", task.Amount, err)
		return nil
	}

	title, err := uc.campaignRepo.GetCampaignTitle(ctx, task.CampaignID)
	if errors.Is(err, persistent.ErrCampaignNotFound) {
		uc.logger.Info("[NOTIFICATION] Campaign %s no longer exists, skipping alert", task.CampaignID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load campaign %s: %w", task.CampaignID, err)
	}

	notification := &entity.Notification{
		ID:         uuid.New().String(),
		UserID:     task.CreatorID,
		CampaignID: task.CampaignID,
		Type:       entity.TypeDonation,
		Title:      "Nova doação recebida",
		Message:    fmt.Sprintf("Você recebeu uma doação de %s na campanha \"%s\".", money.FormatBRL(amount), title),
		Amount:     amount.StringFixed(money.Scale),
		CreatedAt:  uc.now().UTC(),
	}

	if err := uc.store.Push(ctx, notification); err != nil {
		return err
	}

	uc.logger.Info("[NOTIFICATION] Alerted organizer %s about donation on campaign %s", task.CreatorID, task.CampaignID)
	return nil
}

func (uc *notificationUseCase) GetNotifications(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must not be negative", entity.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return uc.store.List(ctx, userID, limit, offset)
}

func (uc *notificationUseCase) ClearNotifications(ctx context.Context, userID string) error {
	return uc.store.Clear(ctx, userID)
}
