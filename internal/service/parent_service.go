package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/repository"
)

const recentSubmissionLimit = 5

// ParentService surfaces children's progress to guardians, with translation
// and audio summaries honoring the parent's preferences.
type ParentService interface {
	ChildrenProgress(ctx context.Context, actor Actor) ([]dto.ChildProgressResponse, error)
	Preferences(ctx context.Context, actor Actor) (dto.ParentPreferencesResponse, error)
	UpdatePreferences(ctx context.Context, actor Actor, payload dto.ParentPreferencesRequest) (dto.ParentPreferencesResponse, error)
	WeeklySummary(ctx context.Context, actor Actor) (dto.ParentWeeklySummaryResponse, error)
}

type parentService struct {
	parents     repository.ParentRepository
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	analytics   AnalyticsService
	narration   NarrationService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewParentService constructs the parent-facing service.
func NewParentService(parentRepo repository.ParentRepository, studentRepo repository.StudentRepository, subRepo repository.SubmissionRepository, analytics AnalyticsService, narration NarrationService, validate *validator.Validate, logger zerolog.Logger) ParentService {
	return &parentService{
		parents:     parentRepo,
		students:    studentRepo,
		submissions: subRepo,
		analytics:   analytics,
		narration:   narration,
		validator:   validate,
		logger:      logger.With().Str("component", "parent_service").Logger(),
	}
}

func (s *parentService) ChildrenProgress(ctx context.Context, actor Actor) ([]dto.ChildProgressResponse, error) {
	parent, err := s.requireParent(ctx, actor)
	if err != nil {
		return nil, err
	}

	progress := make([]dto.ChildProgressResponse, 0, len(parent.Children))
	for _, child := range parent.Children {
		student, err := s.students.GetByUserID(ctx, child.StudentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		// Select the last settled submissions at the query level so a
		// burst of pending work never displaces reviewed results.
		studentID := child.StudentID
		settled, _, err := s.submissions.List(ctx, repository.SubmissionFilter{
			StudentID: &studentID,
			Statuses:  settledStatuses,
			Page:      1,
			Limit:     recentSubmissionLimit,
		})
		if err != nil {
			return nil, err
		}

		progress = append(progress, dto.ChildProgressResponse{
			StudentID:         child.StudentID,
			StudentName:       student.Name,
			Relation:          child.Relation,
			RecentSubmissions: dto.NewSubmissionResponseSlice(settled),
			AverageScore:      mean(effectiveScores(settled)),
			Subjects:          distinctSubjects(settled),
		})
	}

	return progress, nil
}

func (s *parentService) Preferences(ctx context.Context, actor Actor) (dto.ParentPreferencesResponse, error) {
	parent, err := s.requireParent(ctx, actor)
	if err != nil {
		return dto.ParentPreferencesResponse{}, err
	}

	return dto.NewParentPreferencesResponse(parent), nil
}

func (s *parentService) UpdatePreferences(ctx context.Context, actor Actor, payload dto.ParentPreferencesRequest) (dto.ParentPreferencesResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ParentPreferencesResponse{}, err
	}

	if actor.Role != RoleParent {
		return dto.ParentPreferencesResponse{}, ErrUnauthorized
	}

	parent, err := s.parents.UpdatePreferences(ctx, actor.UserID, repository.ParentPreferences{
		PreferredLanguage: payload.PreferredLanguage,
		NotifyEmail:       payload.NotifyEmail,
		NotifyPush:        payload.NotifyPush,
		NotifyAudio:       payload.NotifyAudio,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ParentPreferencesResponse{}, ErrParentNotFound
		}
		return dto.ParentPreferencesResponse{}, err
	}

	s.logger.Info().Str("parent_id", actor.UserID).Msg("preferences updated")

	return dto.NewParentPreferencesResponse(parent), nil
}

// WeeklySummary aggregates each child's trailing-7-day summary, translates
// the combined narrative into the parent's preferred language, and attaches
// audio when enabled. Translation or synthesis failure degrades to the
// untranslated or text-only form rather than failing the request.
func (s *parentService) WeeklySummary(ctx context.Context, actor Actor) (dto.ParentWeeklySummaryResponse, error) {
	parent, err := s.requireParent(ctx, actor)
	if err != nil {
		return dto.ParentWeeklySummaryResponse{}, err
	}

	summaries := make([]dto.ChildWeeklySummary, 0, len(parent.Children))
	narratives := make([]string, 0, len(parent.Children))

	for _, child := range parent.Children {
		summary, err := s.analytics.WeeklySummary(ctx, actor, child.StudentID)
		if err != nil {
			if errors.Is(err, ErrStudentNotFound) {
				continue
			}
			return dto.ParentWeeklySummaryResponse{}, err
		}

		summaries = append(summaries, dto.ChildWeeklySummary{
			StudentID:   child.StudentID,
			StudentName: summary.StudentName,
			Summary:     summary,
		})
		narratives = append(narratives, summary.NarrativeText)
	}

	text := strings.Join(narratives, "\n\n")

	if parent.PreferredLanguage != models.LanguageEnglish && text != "" {
		translated, err := s.narration.TranslateText(ctx, text, parent.PreferredLanguage)
		if err != nil {
			s.logger.Warn().Err(err).Msg("summary translation unavailable, serving english")
		} else {
			text = translated
		}
	}

	response := dto.ParentWeeklySummaryResponse{
		Summaries:   summaries,
		TextSummary: text,
		Language:    parent.PreferredLanguage,
	}

	if parent.NotifyAudio && text != "" {
		narration, err := s.narration.NarrateText(ctx, text, parent.PreferredLanguage)
		if err != nil {
			s.logger.Warn().Err(err).Msg("summary narration unavailable, serving text only")
		} else {
			response.AudioSummary = narration.AudioRef
		}
	}

	return response, nil
}

func (s *parentService) requireParent(ctx context.Context, actor Actor) (models.Parent, error) {
	if actor.Role != RoleParent {
		return models.Parent{}, ErrUnauthorized
	}

	parent, err := s.parents.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Parent{}, ErrParentNotFound
		}
		return models.Parent{}, err
	}

	return parent, nil
}

func distinctSubjects(submissions []models.Submission) []string {
	seen := map[string]struct{}{}
	subjects := make([]string, 0)
	for _, submission := range submissions {
		if _, ok := seen[submission.Subject]; ok {
			continue
		}
		seen[submission.Subject] = struct{}{}
		subjects = append(subjects, submission.Subject)
	}
	sort.Strings(subjects)
	return subjects
}
