package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/observability"
	"github.com/noah-isme/eduai-go-api/internal/repository"
)

// NarrationScheduler queues best-effort regeneration of derived audio after
// feedback text changes. It must never block the caller.
type NarrationScheduler interface {
	ScheduleRegeneration(submissionID, text string)
}

// ReviewService applies teacher overrides and bulk approvals on top of
// automated evaluations, preserving both values.
type ReviewService interface {
	Override(ctx context.Context, actor Actor, submissionID string, payload dto.ReviewRequest) (dto.SubmissionResponse, error)
	BulkApprove(ctx context.Context, actor Actor, payload dto.BulkApproveRequest) (dto.BulkApproveResponse, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	teachers    repository.TeacherRepository
	policy      *AccessPolicy
	events      EventPublisher
	narration   NarrationScheduler
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewReviewService constructs the review engine.
func NewReviewService(subRepo repository.SubmissionRepository, teacherRepo repository.TeacherRepository, policy *AccessPolicy, events EventPublisher, narration NarrationScheduler, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	return &reviewService{
		submissions: subRepo,
		teachers:    teacherRepo,
		policy:      policy,
		events:      events,
		narration:   narration,
		validator:   validate,
		logger:      logger.With().Str("component", "review_service").Logger(),
		now:         time.Now,
	}
}

func (s *reviewService) Override(ctx context.Context, actor Actor, submissionID string, payload dto.ReviewRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if actor.Role != RoleTeacher && actor.Role != RoleAdmin {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	switch submission.Status {
	case models.SubmissionStatusPending:
		return dto.SubmissionResponse{}, NotYetEvaluated(submission.Status)
	case models.SubmissionStatusApproved:
		return dto.SubmissionResponse{}, &InvalidStateError{Current: submission.Status, Attempted: "review"}
	}

	subjects, err := s.policy.SubjectsForTeacher(ctx, actor)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !containsString(subjects, submission.Subject) {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}

	feedback := payload.Feedback
	if feedback == "" {
		feedback = submission.Evaluation.Feedback
	}

	reviewedAt := s.now()
	review := models.TeacherReview{
		Score:      payload.Score,
		Feedback:   feedback,
		ReviewerID: actor.UserID,
		ReviewedAt: &reviewedAt,
	}

	applied, err := s.submissions.SaveReview(ctx, submissionID, review, models.SubmissionStatusReviewed,
		[]string{models.SubmissionStatusEvaluated, models.SubmissionStatusReviewed})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !applied {
		// Lost the race to a concurrent transition; report current state.
		current, err := s.submissions.GetByID(ctx, submissionID)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		return dto.SubmissionResponse{}, &InvalidStateError{Current: current.Status, Attempted: "review"}
	}

	if err := s.teachers.AddReviewedSubmission(ctx, actor.UserID, submissionID); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", submissionID).Msg("failed to record reviewed membership")
	}

	stored, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.ReviewsRecorded().WithLabelValues("override").Inc()
	s.events.SubmissionReviewed(ctx, stored)

	// Regenerate narration only when the feedback text actually changed;
	// the response never waits on synthesis.
	if feedback != submission.Evaluation.Feedback && s.narration != nil {
		s.narration.ScheduleRegeneration(submissionID, feedback)
	}

	s.logger.Info().Str("submission_id", submissionID).Str("reviewer_id", actor.UserID).Msg("review recorded")

	return dto.NewSubmissionResponse(stored), nil
}

// BulkApprove accepts the automated evaluation as final for each authorized
// evaluated submission. It is a filter, not a transaction: one bad id never
// aborts the batch.
func (s *reviewService) BulkApprove(ctx context.Context, actor Actor, payload dto.BulkApproveRequest) (dto.BulkApproveResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkApproveResponse{}, err
	}

	if actor.Role != RoleTeacher && actor.Role != RoleAdmin {
		return dto.BulkApproveResponse{}, ErrUnauthorized
	}

	subjects, err := s.policy.SubjectsForTeacher(ctx, actor)
	if err != nil {
		return dto.BulkApproveResponse{}, err
	}

	response := dto.BulkApproveResponse{}
	for _, id := range payload.SubmissionIDs {
		approved, err := s.approveOne(ctx, actor, subjects, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("submission_id", id).Msg("bulk approve item failed")
			response.SkippedIDs = append(response.SkippedIDs, id)
			continue
		}
		if !approved {
			response.SkippedIDs = append(response.SkippedIDs, id)
			continue
		}
		response.ApprovedCount++
	}

	observability.ReviewsRecorded().WithLabelValues("bulk_approve").Add(float64(response.ApprovedCount))
	s.logger.Info().Int("approved", response.ApprovedCount).Int("skipped", len(response.SkippedIDs)).Msg("bulk approve completed")

	return response, nil
}

func (s *reviewService) approveOne(ctx context.Context, actor Actor, subjects []string, id string) (bool, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if submission.Status != models.SubmissionStatusEvaluated {
		return false, nil
	}
	if !containsString(subjects, submission.Subject) {
		return false, nil
	}

	reviewedAt := s.now()
	review := models.TeacherReview{
		Score:      submission.Evaluation.Score,
		Feedback:   submission.Evaluation.Feedback,
		ReviewerID: actor.UserID,
		ReviewedAt: &reviewedAt,
	}

	applied, err := s.submissions.SaveReview(ctx, id, review, models.SubmissionStatusApproved,
		[]string{models.SubmissionStatusEvaluated})
	if err != nil || !applied {
		return false, err
	}

	if err := s.teachers.AddReviewedSubmission(ctx, actor.UserID, id); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", id).Msg("failed to record reviewed membership")
	}

	if stored, err := s.submissions.GetByID(ctx, id); err == nil {
		s.events.SubmissionReviewed(ctx, stored)
	}

	return true, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
