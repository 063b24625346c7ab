package repository

import (
	"context"

	"golang-signal-notifier/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserPreferenceRepository defines read access to user preference data.
type UserPreferenceRepository interface {
	FindSubscribers(ctx context.Context, instrument string) ([]entity.UserPreference, error)
	FindByUserID(ctx context.Context, userID int64) (*entity.UserPreference, error)
}

// NewUserPreferenceRepository creates a new GORM-based preference repository.
func NewUserPreferenceRepository(db *gorm.DB) UserPreferenceRepository {
	return &userPreferenceRepository{db: db}
}

type userPreferenceRepository struct {
	db *gorm.DB
}

// FindSubscribers returns the preference rows of every user that has
// notifications enabled for the given instrument.
func (r *userPreferenceRepository) FindSubscribers(ctx context.Context, instrument string) ([]entity.UserPreference, error) {
	var prefs []entity.UserPreference
	err := r.db.WithContext(ctx).
		Preload("User").
		Where(datatypes.JSONQuery("preferences").Equals(true, instrument, "notifications")).
		Find(&prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// FindByUserID retrieves the preference row for a single user. A missing row
// is returned as gorm.ErrRecordNotFound.
func (r *userPreferenceRepository) FindByUserID(ctx context.Context, userID int64) (*entity.UserPreference, error) {
	var pref entity.UserPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}
