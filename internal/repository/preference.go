package repository

import (
	"context"
	"errors"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository stores per-profile dashboard settings.
type PreferenceRepository interface {
	Get(ctx context.Context, userID uint) (*models.UserPreference, error)
	Upsert(ctx context.Context, pref *models.UserPreference) error
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// Get returns the stored preferences, or defaults when none were saved.
func (r *preferenceRepository) Get(ctx context.Context, userID uint) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserPreference{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *models.UserPreference) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"hide_recent_activity", "hide_recent_files", "updated_at"}),
	}).Create(pref).Error
}
