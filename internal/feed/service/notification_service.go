package service

import (
	"context"
	"time"

	"golang-signal-notifier/internal/entity"
	"golang-signal-notifier/internal/feed/config"
	"golang-signal-notifier/internal/feed/repository"
	"golang-signal-notifier/pkg/logger"
)

// NotificationService exposes the read and mutation surface of the feed.
// Mutations are optimistic: the shared cache changes first and is not rolled
// back if the durable write later fails. Read-state divergence self-heals on
// the next warm from the store.
type NotificationService interface {
	List(ctx context.Context, userID int64) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID int64, id string)
	MarkAllAsRead(ctx context.Context, userID int64)
	ClearAll(ctx context.Context, userID int64)
	SweepExpired(ctx context.Context)
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	cfg *config.Config,
	log *logger.Logger,
	notifRepo repository.NotificationRepository,
	cache *Cache,
) NotificationService {
	return &notificationService{
		cfg:       cfg,
		log:       log,
		notifRepo: notifRepo,
		cache:     cache,
	}
}

type notificationService struct {
	cfg       *config.Config
	log       *logger.Logger
	notifRepo repository.NotificationRepository
	cache     *Cache
}

// List returns the cached feed, warming it from the store on first access.
func (s *notificationService) List(ctx context.Context, userID int64) ([]entity.Notification, error) {
	if rows, ok := s.cache.Lookup(userID); ok {
		return rows, nil
	}

	rows, err := s.notifRepo.FindByUserID(ctx, userID, s.cfg.Feed.CacheWarmLimit)
	if err != nil {
		return nil, err
	}
	s.cache.Replace(userID, rows)
	return rows, nil
}

// UnreadCount returns the number of unread notifications, from the cache
// when warmed and from the store otherwise.
func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if _, ok := s.cache.Lookup(userID); ok {
		return int64(s.cache.UnreadCount(userID)), nil
	}
	return s.notifRepo.CountUnread(ctx, userID)
}

// MarkAsRead optimistically flips the cached row, then persists. A failed
// durable write is logged and the local flip stands.
func (s *notificationService) MarkAsRead(ctx context.Context, userID int64, id string) {
	s.cache.MarkRead(userID, id)
	if err := s.notifRepo.MarkAsRead(ctx, userID, id); err != nil {
		s.log.Error("Failed to persist mark-as-read",
			logger.ErrorField(err),
			logger.Field("user_id", userID),
			logger.StringField("notification_id", id))
	}
}

// MarkAllAsRead optimistically flips every cached row, then persists the
// batch update scoped to unread rows.
func (s *notificationService) MarkAllAsRead(ctx context.Context, userID int64) {
	s.cache.MarkAllRead(userID)
	if err := s.notifRepo.MarkAllAsRead(ctx, userID); err != nil {
		s.log.Error("Failed to persist mark-all-as-read",
			logger.ErrorField(err),
			logger.Field("user_id", userID))
	}
}

// ClearAll optimistically empties the cache, then deletes the durable rows.
func (s *notificationService) ClearAll(ctx context.Context, userID int64) {
	s.cache.Clear(userID)
	if err := s.notifRepo.DeleteAllByUserID(ctx, userID); err != nil {
		s.log.Error("Failed to persist clear-all",
			logger.ErrorField(err),
			logger.Field("user_id", userID))
	}
}

// SweepExpired deletes read notifications older than the retention age.
func (s *notificationService) SweepExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Feed.RetentionMaxAge)
	removed, err := s.notifRepo.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("Retention sweep failed", logger.ErrorField(err))
		return
	}
	if removed > 0 {
		s.log.Info("Retention sweep completed", logger.Field("removed", removed))
	}
}
