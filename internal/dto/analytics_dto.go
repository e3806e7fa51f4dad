package dto

// StudentTrendResponse summarizes a student's performance over a window.
type StudentTrendResponse struct {
	StudentID        string  `json:"student_id"`
	WindowDays       int     `json:"window_days"`
	AverageScore     float64 `json:"average_score"`
	TotalSubmissions int     `json:"total_submissions"`
	ImprovementRate  float64 `json:"improvement_rate"`
}

// SubjectStatistics is one per-subject row of a teacher's review statistics.
type SubjectStatistics struct {
	Subject         string  `json:"subject"`
	TotalReviewed   int     `json:"total_reviewed"`
	AverageScore    float64 `json:"average_score"`
	AIAgreementRate float64 `json:"ai_agreement_rate"`
}

// TeacherStatisticsResponse groups a teacher's review activity by subject.
type TeacherStatisticsResponse struct {
	TeacherID        string              `json:"teacher_id"`
	ReviewStats      []SubjectStatistics `json:"review_stats"`
	TotalSubmissions int                 `json:"total_submissions"`
}

// SubjectPerformance is a per-subject average over a summary window.
type SubjectPerformance struct {
	Subject      string  `json:"subject"`
	AverageScore float64 `json:"average_score"`
	Count        int     `json:"count"`
}

// WeeklySummaryResponse describes a student's trailing-7-day performance
// with a deterministic narrative, optionally translated and narrated.
type WeeklySummaryResponse struct {
	StudentID          string               `json:"student_id"`
	StudentName        string               `json:"student_name,omitempty"`
	SubmissionsCount   int                  `json:"submissions_count"`
	SubjectPerformance []SubjectPerformance `json:"subject_performance"`
	Improvement        float64              `json:"improvement"`
	NarrativeText      string               `json:"narrative_text"`
}
