package entity

import (
	"time"

	"gorm.io/datatypes"
)

// UserPreference holds one user's per-instrument notification preferences as
// a JSONB map of instrument name to channel flags. The settings subsystem
// owns writes; this service only reads.
type UserPreference struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	UserID      int64          `gorm:"not null;uniqueIndex" json:"user_id"`
	Preferences datatypes.JSON `gorm:"type:jsonb" json:"preferences"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
