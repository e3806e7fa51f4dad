package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/observability"
	"github.com/noah-isme/eduai-go-api/internal/repository"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

// DegradedFeedback is recorded when the evaluator stayed unavailable after a
// retry. The submission still transitions to evaluated so it is never left
// silently pending.
const DegradedFeedback = "evaluation pending"

// EvaluationDispatcher routes a submission to the evaluator for its
// modality. Satisfied by ai.Dispatcher.
type EvaluationDispatcher interface {
	Evaluate(ctx context.Context, modality string, payload ai.Payload, subjectHint string) (ai.EvaluationResult, error)
}

// SubmissionService owns submission records and their state transitions. It
// is the single source of truth for lifecycle status.
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id string) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error)
	RecordEvaluation(ctx context.Context, id string, result ai.EvaluationResult) (models.Submission, error)
}

type submissionService struct {
	submissions  repository.SubmissionRepository
	students     repository.StudentRepository
	dispatcher   EvaluationDispatcher
	policy       *AccessPolicy
	events       EventPublisher
	validator    *validator.Validate
	logger       zerolog.Logger
	now          func() time.Time
	retryBackoff time.Duration
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, studentRepo repository.StudentRepository, dispatcher EvaluationDispatcher, policy *AccessPolicy, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions:  subRepo,
		students:     studentRepo,
		dispatcher:   dispatcher,
		policy:       policy,
		events:       events,
		validator:    validate,
		logger:       logger.With().Str("component", "submission_service").Logger(),
		now:          time.Now,
		retryBackoff: 500 * time.Millisecond,
	}
}

func (s *submissionService) Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if actor.Role != RoleStudent && actor.Role != RoleAdmin {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}

	if _, err := s.students.GetByUserID(ctx, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrStudentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		ID:        uuid.NewString(),
		StudentID: actor.UserID,
		Subject:   payload.Subject,
		Topic:     payload.Topic,
		Modality:  payload.Modality,
		Content:   payload.Content,
		Language:  payload.Language,
		Status:    models.SubmissionStatusPending,
		CreatedAt: s.now(),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.SubmissionsCreated().WithLabelValues(submission.Modality).Inc()
	s.logger.Info().Str("submission_id", submission.ID).Str("modality", submission.Modality).Msg("submission created")

	result, err := s.dispatch(ctx, submission)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	evaluated, err := s.RecordEvaluation(ctx, submission.ID, result)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(evaluated), nil
}

// dispatch invokes the evaluator without holding any submission state. An
// unavailable evaluator is retried once with backoff, then replaced by the
// degraded placeholder result.
func (s *submissionService) dispatch(ctx context.Context, submission models.Submission) (ai.EvaluationResult, error) {
	payload := ai.Payload{Content: submission.Content, Language: submission.Language}

	result, err := s.dispatcher.Evaluate(ctx, submission.Modality, payload, submission.Subject)
	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(err, ai.ErrUnsupportedModality):
		return ai.EvaluationResult{}, err
	case errors.Is(err, ai.ErrInvalidPayload):
		s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("evaluator rejected payload, recording degraded evaluation")
		return degradedResult(), nil
	}

	select {
	case <-time.After(s.retryBackoff):
	case <-ctx.Done():
		return degradedResult(), nil
	}

	result, err = s.dispatcher.Evaluate(ctx, submission.Modality, payload, submission.Subject)
	if err != nil {
		s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("evaluator unavailable after retry, recording degraded evaluation")
		observability.EvaluationsDegraded().WithLabelValues(submission.Modality).Inc()
		return degradedResult(), nil
	}

	return result, nil
}

func degradedResult() ai.EvaluationResult {
	return ai.EvaluationResult{
		Score:    nil,
		Feedback: DegradedFeedback,
		Detail:   map[string]interface{}{"degraded": true},
	}
}

// RecordEvaluation transitions pending -> evaluated. Calling it on an
// already-evaluated submission is idempotent: the stored submission is
// returned unchanged.
func (s *submissionService) RecordEvaluation(ctx context.Context, id string, result ai.EvaluationResult) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	if submission.Status != models.SubmissionStatusPending {
		return submission, nil
	}

	eval := models.AutomatedEvaluation{
		Score:      result.Score,
		Feedback:   result.Feedback,
		Detail:     result.Detail,
		Confidence: result.Confidence,
	}

	applied, err := s.submissions.MarkEvaluated(ctx, id, eval, s.now())
	if err != nil {
		return models.Submission{}, err
	}

	stored, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}

	if applied {
		observability.EvaluationsRecorded().WithLabelValues(stored.Modality).Inc()
		s.events.SubmissionEvaluated(ctx, stored)
		s.logger.Info().Str("submission_id", id).Msg("evaluation recorded")
	}

	return stored, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	allowed, err := s.policy.CanReadSubmission(ctx, actor, submission)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !allowed {
		return dto.SubmissionResponse{}, ErrUnauthorized
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	repoFilter := repository.SubmissionFilter{
		Subject: filter.Subject,
		Status:  filter.Status,
		From:    filter.From,
		To:      filter.To,
		Page:    filter.Page,
		Limit:   filter.Limit,
	}
	if repoFilter.Page < 1 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit < 1 {
		repoFilter.Limit = 10
	}

	switch actor.Role {
	case RoleStudent:
		studentID := actor.UserID
		repoFilter.StudentID = &studentID
	case RoleTeacher:
		subjects, err := s.policy.SubjectsForTeacher(ctx, actor)
		if err != nil {
			return dto.SubmissionListResponse{}, err
		}
		if len(subjects) == 0 {
			return dto.SubmissionListResponse{Submissions: []dto.SubmissionResponse{}, CurrentPage: repoFilter.Page}, nil
		}
		repoFilter.Subjects = subjects
	case RoleAdmin:
		// unrestricted
	default:
		return dto.SubmissionListResponse{}, ErrUnauthorized
	}

	submissions, total, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	pages := total / int64(repoFilter.Limit)
	if total%int64(repoFilter.Limit) != 0 {
		pages++
	}

	return dto.SubmissionListResponse{
		Submissions: dto.NewSubmissionResponseSlice(submissions),
		Total:       total,
		Pages:       pages,
		CurrentPage: repoFilter.Page,
	}, nil
}
