package dto

import "github.com/noah-isme/eduai-go-api/internal/models"

// ParentPreferencesRequest updates a parent's language and notification
// preferences. Omitted fields are left unchanged.
type ParentPreferencesRequest struct {
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,oneof=english tamil hindi telugu"`
	NotifyEmail       *bool   `json:"notify_email"`
	NotifyPush        *bool   `json:"notify_push"`
	NotifyAudio       *bool   `json:"notify_audio"`
}

// ParentPreferencesResponse serializes a parent profile's preferences.
type ParentPreferencesResponse struct {
	UserID            string `json:"user_id"`
	PreferredLanguage string `json:"preferred_language"`
	NotifyEmail       bool   `json:"notify_email"`
	NotifyPush        bool   `json:"notify_push"`
	NotifyAudio       bool   `json:"notify_audio"`
}

// NewParentPreferencesResponse converts a Parent model into a DTO.
func NewParentPreferencesResponse(parent models.Parent) ParentPreferencesResponse {
	return ParentPreferencesResponse{
		UserID:            parent.UserID,
		PreferredLanguage: parent.PreferredLanguage,
		NotifyEmail:       parent.NotifyEmail,
		NotifyPush:        parent.NotifyPush,
		NotifyAudio:       parent.NotifyAudio,
	}
}

// ChildProgressResponse summarizes one child's recent performance for a
// parent dashboard.
type ChildProgressResponse struct {
	StudentID         string               `json:"student_id"`
	StudentName       string               `json:"student_name"`
	Relation          string               `json:"relation"`
	RecentSubmissions []SubmissionResponse `json:"recent_submissions"`
	AverageScore      float64              `json:"average_score"`
	Subjects          []string             `json:"subjects"`
}

// ChildWeeklySummary pairs a child with their weekly summary.
type ChildWeeklySummary struct {
	StudentID   string                `json:"student_id"`
	StudentName string                `json:"student_name"`
	Summary     WeeklySummaryResponse `json:"summary"`
}

// ParentWeeklySummaryResponse aggregates weekly summaries for every child,
// translated to the parent's preferred language and narrated when audio
// summaries are enabled.
type ParentWeeklySummaryResponse struct {
	Summaries    []ChildWeeklySummary `json:"summaries"`
	TextSummary  string               `json:"text_summary"`
	AudioSummary string               `json:"audio_summary,omitempty"`
	Language     string               `json:"language"`
}
