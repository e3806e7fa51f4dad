package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// TeacherRepository defines data operations for teacher profiles and their
// reviewed-submission membership set.
type TeacherRepository interface {
	GetByUserID(ctx context.Context, userID string) (models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	AddReviewedSubmission(ctx context.Context, teacherID, submissionID string) error
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository instantiates the repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) GetByUserID(ctx context.Context, userID string) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).First(&teacher, "user_id = ?", userID).Error; err != nil {
		return models.Teacher{}, err
	}

	return teacher, nil
}

func (r *teacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	return r.db.WithContext(ctx).Create(teacher).Error
}

// AddReviewedSubmission records set membership; re-adding is a no-op.
func (r *teacherRepository) AddReviewedSubmission(ctx context.Context, teacherID, submissionID string) error {
	entry := models.ReviewedSubmission{TeacherID: teacherID, SubmissionID: submissionID}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}
