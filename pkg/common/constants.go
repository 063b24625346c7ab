package common

import "fmt"

const (
	RedisStreamSignalEvents = "signal.events"

	RedisStreamGroup    = "watcher-group"
	RedisStreamConsumer = "watcher-consumer"
)

// UserNotificationChannel is the Pub/Sub channel carrying newly created
// notification rows for a single user.
func UserNotificationChannel(userID int64) string {
	return fmt.Sprintf("notifications.user.%d", userID)
}
