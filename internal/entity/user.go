package entity

import "time"

// User is a subscriber of the notification feed. Profile data lives in the
// account service; only the fields this core needs are mapped.
type User struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	TelegramID int64     `json:"telegram_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
