package dto

import (
	"time"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// SubmissionCreateRequest is the payload for submitting new student work.
// Content is the raw text or code for inline modalities, or a storage
// reference for handwritten images and voice recordings.
type SubmissionCreateRequest struct {
	Modality string `json:"modality" validate:"required,oneof=text code handwritten voice"`
	Subject  string `json:"subject" validate:"required,min=2,max=128"`
	Topic    string `json:"topic" validate:"omitempty,max=255"`
	Content  string `json:"content" validate:"required"`
	Language string `json:"language" validate:"omitempty,max=32"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	Subject *string    `query:"subject"`
	Status  *string    `query:"status" validate:"omitempty,oneof=pending evaluated reviewed approved"`
	From    *time.Time `query:"from"`
	To      *time.Time `query:"to"`
	Page    int        `query:"page" validate:"omitempty,gte=1"`
	Limit   int        `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

// EvaluationResponse serializes the automated evaluation of a submission.
type EvaluationResponse struct {
	Score      *float64               `json:"score"`
	Feedback   string                 `json:"feedback"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	Confidence *float64               `json:"confidence,omitempty"`
}

// ReviewResponse serializes a teacher override.
type ReviewResponse struct {
	Score      *float64   `json:"score"`
	Feedback   string     `json:"feedback"`
	ReviewerID string     `json:"reviewer_id"`
	ReviewedAt *time.Time `json:"reviewed_at"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID             string              `json:"id"`
	StudentID      string              `json:"student_id"`
	Subject        string              `json:"subject"`
	Topic          string              `json:"topic,omitempty"`
	Modality       string              `json:"modality"`
	Status         string              `json:"status"`
	Evaluation     *EvaluationResponse `json:"evaluation,omitempty"`
	Review         *ReviewResponse     `json:"review,omitempty"`
	EffectiveScore *float64            `json:"effective_score"`
	CreatedAt      time.Time           `json:"created_at"`
	EvaluatedAt    *time.Time          `json:"evaluated_at,omitempty"`
	ReviewedAt     *time.Time          `json:"reviewed_at,omitempty"`
}

// SubmissionListResponse wraps a paginated submission listing.
type SubmissionListResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Total       int64                `json:"total"`
	Pages       int64                `json:"pages"`
	CurrentPage int                  `json:"current_page"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:             model.ID,
		StudentID:      model.StudentID,
		Subject:        model.Subject,
		Topic:          model.Topic,
		Modality:       model.Modality,
		Status:         model.Status,
		EffectiveScore: model.EffectiveScore(),
		CreatedAt:      model.CreatedAt,
		EvaluatedAt:    model.EvaluatedAt,
		ReviewedAt:     model.ReviewedAt,
	}

	if model.HasEvaluation() {
		response.Evaluation = &EvaluationResponse{
			Score:      model.Evaluation.Score,
			Feedback:   model.Evaluation.Feedback,
			Detail:     model.Evaluation.Detail,
			Confidence: model.Evaluation.Confidence,
		}
	}

	if model.HasReview() {
		response.Review = &ReviewResponse{
			Score:      model.Review.Score,
			Feedback:   model.Review.Feedback,
			ReviewerID: model.Review.ReviewerID,
			ReviewedAt: model.Review.ReviewedAt,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
