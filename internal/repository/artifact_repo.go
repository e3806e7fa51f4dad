package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// ArtifactRepository stores derived narration/translation artifacts keyed by
// (kind, language, content hash).
type ArtifactRepository interface {
	Find(ctx context.Context, kind, language, contentHash string, now time.Time) (models.DerivedArtifact, error)
	Save(ctx context.Context, artifact *models.DerivedArtifact) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type artifactRepository struct {
	db *gorm.DB
}

// NewArtifactRepository instantiates the repository.
func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{db: db}
}

// Find returns the cached artifact for the key, ignoring entries past their
// retention window. Expired rows are left for the periodic sweep.
func (r *artifactRepository) Find(ctx context.Context, kind, language, contentHash string, now time.Time) (models.DerivedArtifact, error) {
	var artifact models.DerivedArtifact
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND language = ? AND content_hash = ?", kind, language, contentHash).
		Where("expires_at > ?", now).
		First(&artifact).Error; err != nil {
		return models.DerivedArtifact{}, err
	}

	return artifact, nil
}

// Save upserts on the composite key so regenerating an expired entry
// replaces it in place.
func (r *artifactRepository) Save(ctx context.Context, artifact *models.DerivedArtifact) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "language"}, {Name: "content_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"submission_id", "text", "audio_ref", "duration_seconds", "expires_at"}),
		}).
		Create(artifact).Error
}

func (r *artifactRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.DerivedArtifact{})

	return result.RowsAffected, result.Error
}
