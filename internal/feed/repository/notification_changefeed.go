package repository

import (
	"context"
	"encoding/json"

	"golang-signal-notifier/internal/entity"
	"golang-signal-notifier/pkg/common"
	"golang-signal-notifier/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// NotificationChangefeed delivers newly created notification rows for one
// user. Delivery is at-least-once with no ordering guarantee across rows; the
// returned cancel func closes the underlying subscription.
type NotificationChangefeed interface {
	Subscribe(ctx context.Context, userID int64) (<-chan entity.Notification, func(), error)
}

// NewRedisNotificationChangefeed creates a Pub/Sub backed changefeed.
func NewRedisNotificationChangefeed(client *redis.Client, log *logger.Logger) NotificationChangefeed {
	return &redisNotificationChangefeed{client: client, log: log}
}

type redisNotificationChangefeed struct {
	client *redis.Client
	log    *logger.Logger
}

// Subscribe opens a Pub/Sub subscription on the user's notification channel
// and decodes messages into notification rows. Malformed messages are logged
// and skipped.
func (f *redisNotificationChangefeed) Subscribe(ctx context.Context, userID int64) (<-chan entity.Notification, func(), error) {
	channel := common.UserNotificationChannel(userID)
	pubsub := f.client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so the
	// caller never misses rows published after a successful Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan entity.Notification)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var notification entity.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
				f.log.Error("Failed to decode notification message",
					logger.ErrorField(err),
					logger.StringField("channel", channel))
				continue
			}
			out <- notification
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			f.log.Error("Failed to close pubsub subscription", logger.ErrorField(err), logger.StringField("channel", channel))
		}
	}
	return out, cancel, nil
}
