package repository

import (
	"context"

	"golang-signal-notifier/internal/entity"

	"gorm.io/gorm"
)

// NotificationRepository defines write access to notification rows from the
// watcher side.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []entity.Notification) error
}

// NewNotificationRepository creates a new GORM-based notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

type notificationRepository struct {
	db *gorm.DB
}

// CreateBatch inserts the whole fan-out of one signal event in a single write.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []entity.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}
