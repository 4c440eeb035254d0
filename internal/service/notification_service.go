package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NotificationChannel is the redis pub/sub channel carrying a user's live
// notifications.
func NotificationChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

type NotificationService interface {
	Create(ctx context.Context, notification *model.Notification) error
	List(ctx context.Context, filter repository.NotificationFilter) ([]model.Notification, int64, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type notificationService struct {
	repo        repository.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) Create(ctx context.Context, notification *model.Notification) error {
	if !notification.Type.Valid() {
		return fmt.Errorf("%w: invalid notification type %q", apperror.ErrInvalidInput, notification.Type)
	}

	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	// 2. Publish to Redis for websocket delivery if Redis is available
	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			s.redisClient.Publish(ctx, NotificationChannel(notification.UserID), payload)
		}
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, filter repository.NotificationFilter) ([]model.Notification, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.repo.Find(ctx, filter)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
