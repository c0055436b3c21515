package persistent

import (
	"context"
	"encoding/json"
	"fmt"

	"mao-amiga/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

// MaxStoredNotifications bounds each organizer's list; older alerts fall off.
const MaxStoredNotifications = 100

type NotificationStore interface {
	Push(ctx context.Context, notification *entity.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
	Clear(ctx context.Context, userID string) error
}

type redisNotificationStore struct {
	redisClient *redis.Client
}

func NewRedisNotificationStore(redisClient *redis.Client) NotificationStore {
	return &redisNotificationStore{redisClient: redisClient}
}

func notificationsKey(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func (s *redisNotificationStore) Push(ctx context.Context, notification *entity.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := notificationsKey(notification.UserID)
	pipe := s.redisClient.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, MaxStoredNotifications-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func (s *redisNotificationStore) List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	key := notificationsKey(userID)

	raw, err := s.redisClient.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	notifications := make([]entity.Notification, 0, len(raw))
	for _, item := range raw {
		var notification entity.Notification
		if err := json.Unmarshal([]byte(item), &notification); err == nil {
			notifications = append(notifications, notification)
		}
	}

	total, err := s.redisClient.LLen(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *redisNotificationStore) Clear(ctx context.Context, userID string) error {
	return s.redisClient.Del(ctx, notificationsKey(userID)).Err()
}
