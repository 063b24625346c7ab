package entity

import "time"

// NotificationType categorizes a notification row.
type NotificationType string

const (
	NotificationTypeSignal  NotificationType = "signal"
	NotificationTypeSystem  NotificationType = "system"
	NotificationTypeAlert   NotificationType = "alert"
	NotificationTypeAccount NotificationType = "account"
)

// Notification is a durable per-user notification record. Everything except
// IsRead is immutable after creation; IsRead only moves false -> true.
type Notification struct {
	ID             string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         int64            `gorm:"not null;index:idx_notifications_user_created" json:"user_id"`
	Type           NotificationType `gorm:"not null" json:"type"`
	Title          string           `gorm:"not null" json:"title"`
	Body           string           `json:"body"`
	URL            string           `json:"url"`
	EventKind      EventKind        `json:"event_kind"`
	TradeSide      TradeSide        `json:"trade_side"`
	InstrumentName string           `json:"instrument_name"`
	IsRead         bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time        `gorm:"autoCreateTime;index:idx_notifications_user_created,sort:desc" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
