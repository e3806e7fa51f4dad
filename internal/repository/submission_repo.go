package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// SubmissionFilter narrows submission queries. Subjects scopes results to a
// teacher's assigned subjects; Page/Limit paginate.
type SubmissionFilter struct {
	StudentID *string
	Subject   *string
	Status    *string
	Statuses  []string
	Subjects  []string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// SubmissionRepository defines data operations for submissions. The
// transition methods use compare-and-set on status so concurrent writers on
// the same record cannot double-write.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	ListForStudent(ctx context.Context, studentID string, statuses []string, from, to time.Time) ([]models.Submission, error)
	ListReviewedBy(ctx context.Context, reviewerID string, from, to *time.Time) ([]models.Submission, error)
	MarkEvaluated(ctx context.Context, id string, eval models.AutomatedEvaluation, at time.Time) (bool, error)
	SaveReview(ctx context.Context, id string, review models.TeacherReview, newStatus string, fromStatuses []string) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Subject != nil {
		query = query.Where("subject = ?", *filter.Subject)
	}
	if len(filter.Subjects) > 0 {
		query = query.Where("subject IN ?", filter.Subjects)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	var submissions []models.Submission
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) ListForStudent(ctx context.Context, studentID string, statuses []string, from, to time.Time) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Where("student_id = ?", studentID)

	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}

	var submissions []models.Submission
	if err := query.Order("created_at ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListReviewedBy(ctx context.Context, reviewerID string, from, to *time.Time) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Where("review_reviewer_id = ?", reviewerID)

	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var submissions []models.Submission
	if err := query.Order("created_at ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// MarkEvaluated transitions pending -> evaluated. Returns false without
// error when the submission already left pending, which callers treat as
// idempotent success.
func (r *submissionRepository) MarkEvaluated(ctx context.Context, id string, eval models.AutomatedEvaluation, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.SubmissionStatusPending).
		Updates(map[string]interface{}{
			"status":          models.SubmissionStatusEvaluated,
			"eval_score":      eval.Score,
			"eval_feedback":   eval.Feedback,
			"eval_detail":     eval.Detail,
			"eval_confidence": eval.Confidence,
			"evaluated_at":    at,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// SaveReview transitions into newStatus only when the current status is one
// of fromStatuses. The top-level ReviewedAt timestamp is set once and kept
// on later overrides.
func (r *submissionRepository) SaveReview(ctx context.Context, id string, review models.TeacherReview, newStatus string, fromStatuses []string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(map[string]interface{}{
			"status":             newStatus,
			"review_score":       review.Score,
			"review_feedback":    review.Feedback,
			"review_reviewer_id": review.ReviewerID,
			"review_reviewed_at": review.ReviewedAt,
			"reviewed_at":        gorm.Expr("COALESCE(reviewed_at, ?)", review.ReviewedAt),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
