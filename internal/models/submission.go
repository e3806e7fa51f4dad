package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission modalities accepted by the evaluation pipeline.
const (
	ModalityText        = "text"
	ModalityCode        = "code"
	ModalityHandwritten = "handwritten"
	ModalityVoice       = "voice"
)

// Submission lifecycle states. Reviewed and approved are terminal.
const (
	SubmissionStatusPending   = "pending"
	SubmissionStatusEvaluated = "evaluated"
	SubmissionStatusReviewed  = "reviewed"
	SubmissionStatusApproved  = "approved"
)

// AutomatedEvaluation is the normalized outcome of an AI evaluator run.
// Score is nil when the evaluator was unavailable and the submission
// proceeded with a degraded placeholder.
type AutomatedEvaluation struct {
	Score      *float64          `json:"score"`
	Feedback   string            `gorm:"type:text" json:"feedback"`
	Detail     datatypes.JSONMap `json:"detail"`
	Confidence *float64          `json:"confidence"`
}

// TeacherReview is an optional override recorded on top of the automated
// evaluation. The automated values are never overwritten.
type TeacherReview struct {
	Score      *float64   `json:"score"`
	Feedback   string     `gorm:"type:text" json:"feedback"`
	ReviewerID string     `gorm:"size:64" json:"reviewer_id"`
	ReviewedAt *time.Time `json:"reviewed_at"`
}

// Submission represents one unit of student work moving through the
// evaluation lifecycle.
type Submission struct {
	ID          string              `gorm:"primaryKey;size:36" json:"id"`
	StudentID   string              `gorm:"size:64;index;not null" json:"student_id"`
	Subject     string              `gorm:"size:128;index;not null" json:"subject"`
	Topic       string              `gorm:"size:255" json:"topic"`
	Modality    string              `gorm:"size:16;not null" json:"modality"`
	Content     string              `gorm:"type:text" json:"content"`
	Language    string              `gorm:"size:32" json:"language"`
	Status      string              `gorm:"size:16;index;not null" json:"status"`
	Evaluation  AutomatedEvaluation `gorm:"embedded;embeddedPrefix:eval_" json:"evaluation"`
	Review      TeacherReview       `gorm:"embedded;embeddedPrefix:review_" json:"review"`
	CreatedAt   time.Time           `gorm:"index" json:"created_at"`
	EvaluatedAt *time.Time          `json:"evaluated_at"`
	ReviewedAt  *time.Time          `json:"reviewed_at"`
}

// HasEvaluation reports whether an automated evaluation has been recorded.
func (s Submission) HasEvaluation() bool {
	return s.EvaluatedAt != nil
}

// HasReview reports whether a teacher override has been recorded.
func (s Submission) HasReview() bool {
	return s.Review.ReviewerID != ""
}

// EffectiveScore resolves the score downstream consumers must use: the
// teacher override when present, otherwise the automated score.
func (s Submission) EffectiveScore() *float64 {
	if s.HasReview() {
		return s.Review.Score
	}
	return s.Evaluation.Score
}

// EffectiveFeedback resolves feedback the same way as EffectiveScore.
func (s Submission) EffectiveFeedback() string {
	if s.HasReview() && s.Review.Feedback != "" {
		return s.Review.Feedback
	}
	return s.Evaluation.Feedback
}

// ValidModality reports whether the given modality is one the pipeline accepts.
func ValidModality(modality string) bool {
	switch modality {
	case ModalityText, ModalityCode, ModalityHandwritten, ModalityVoice:
		return true
	}
	return false
}
