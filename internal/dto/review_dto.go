package dto

// ReviewRequest is a teacher override of the automated evaluation.
type ReviewRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0,lte=100"`
	Feedback string   `json:"feedback" validate:"omitempty,min=3"`
}

// BulkApproveRequest accepts a batch of submission ids to approve as-is.
type BulkApproveRequest struct {
	SubmissionIDs []string `json:"submission_ids" validate:"required,min=1,dive,required"`
}

// BulkApproveResponse reports best-effort batch results: how many were
// approved, plus the ids that were skipped.
type BulkApproveResponse struct {
	ApprovedCount int      `json:"approved_count"`
	SkippedIDs    []string `json:"skipped_ids,omitempty"`
}
