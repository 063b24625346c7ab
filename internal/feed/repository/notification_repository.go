package repository

import (
	"context"
	"time"

	"golang-signal-notifier/internal/entity"

	"gorm.io/gorm"
)

// NotificationRepository defines the feed-side operations on notification
// rows. Read-state updates only ever move false -> true.
type NotificationRepository interface {
	FindByUserID(ctx context.Context, userID int64, limit int) ([]entity.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID int64, id string) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	DeleteAllByUserID(ctx context.Context, userID int64) error
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationRepository creates a new GORM-based notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

type notificationRepository struct {
	db *gorm.DB
}

// FindByUserID retrieves a user's notifications newest first.
func (r *notificationRepository) FindByUserID(ctx context.Context, userID int64, limit int) ([]entity.Notification, error) {
	var notifications []entity.Notification
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkAsRead flips a single notification to read. The is_read filter keeps
// the update idempotent and monotonic.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID int64, id string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true).Error
}

// MarkAllAsRead flips all of a user's unread notifications to read.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// DeleteAllByUserID removes every notification row for a user.
func (r *notificationRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.Notification{}).Error
}

// DeleteReadOlderThan removes read notifications created before cutoff and
// returns the number of rows removed.
func (r *notificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&entity.Notification{})
	return result.RowsAffected, result.Error
}
