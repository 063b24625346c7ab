package repository

import (
	"context"

	"golang-signal-notifier/internal/entity"

	"gorm.io/gorm"
)

// UserPreferenceRepository defines read access to a single user's preference
// map. The settings subsystem owns writes.
type UserPreferenceRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*entity.UserPreference, error)
}

// NewUserPreferenceRepository creates a new GORM-based preference repository.
func NewUserPreferenceRepository(db *gorm.DB) UserPreferenceRepository {
	return &userPreferenceRepository{db: db}
}

type userPreferenceRepository struct {
	db *gorm.DB
}

// FindByUserID retrieves the preference row for a single user.
func (r *userPreferenceRepository) FindByUserID(ctx context.Context, userID int64) (*entity.UserPreference, error) {
	var pref entity.UserPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}
