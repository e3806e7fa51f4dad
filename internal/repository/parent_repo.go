package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// ParentPreferences captures the mutable preference fields of a parent
// profile.
type ParentPreferences struct {
	PreferredLanguage *string
	NotifyEmail       *bool
	NotifyPush        *bool
	NotifyAudio       *bool
}

// ParentRepository defines data operations for parent profiles.
type ParentRepository interface {
	GetByUserID(ctx context.Context, userID string) (models.Parent, error)
	Create(ctx context.Context, parent *models.Parent) error
	UpdatePreferences(ctx context.Context, userID string, prefs ParentPreferences) (models.Parent, error)
}

type parentRepository struct {
	db *gorm.DB
}

// NewParentRepository instantiates the repository.
func NewParentRepository(db *gorm.DB) ParentRepository {
	return &parentRepository{db: db}
}

func (r *parentRepository) GetByUserID(ctx context.Context, userID string) (models.Parent, error) {
	var parent models.Parent
	if err := r.db.WithContext(ctx).
		Preload("Children").
		First(&parent, "user_id = ?", userID).Error; err != nil {
		return models.Parent{}, err
	}

	return parent, nil
}

func (r *parentRepository) Create(ctx context.Context, parent *models.Parent) error {
	return r.db.WithContext(ctx).Create(parent).Error
}

func (r *parentRepository) UpdatePreferences(ctx context.Context, userID string, prefs ParentPreferences) (models.Parent, error) {
	updates := map[string]interface{}{}
	if prefs.PreferredLanguage != nil {
		updates["preferred_language"] = *prefs.PreferredLanguage
	}
	if prefs.NotifyEmail != nil {
		updates["notify_email"] = *prefs.NotifyEmail
	}
	if prefs.NotifyPush != nil {
		updates["notify_push"] = *prefs.NotifyPush
	}
	if prefs.NotifyAudio != nil {
		updates["notify_audio"] = *prefs.NotifyAudio
	}

	if len(updates) > 0 {
		result := r.db.WithContext(ctx).
			Model(&models.Parent{}).
			Where("user_id = ?", userID).
			Updates(updates)
		if result.Error != nil {
			return models.Parent{}, result.Error
		}
		if result.RowsAffected == 0 {
			return models.Parent{}, gorm.ErrRecordNotFound
		}
	}

	return r.GetByUserID(ctx, userID)
}
