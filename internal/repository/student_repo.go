package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// StudentRepository defines data operations for student profiles.
type StudentRepository interface {
	GetByUserID(ctx context.Context, userID string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, "user_id = ?", userID).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}
