package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/repository"
)

// AnalyticsService computes per-student trend metrics and per-teacher review
// statistics over arbitrary time windows. Aggregation happens in process
// over the submission store's query interface; no database aggregation DSL.
type AnalyticsService interface {
	StudentTrend(ctx context.Context, actor Actor, studentID string, windowDays int) (dto.StudentTrendResponse, error)
	TeacherStatistics(ctx context.Context, actor Actor, from, to *time.Time) (dto.TeacherStatisticsResponse, error)
	WeeklySummary(ctx context.Context, actor Actor, studentID string) (dto.WeeklySummaryResponse, error)
}

// AnalyticsConfig tunes aggregation behavior.
type AnalyticsConfig struct {
	// AgreementTolerance is the maximum score delta still counted as
	// teacher/AI agreement. Zero means exact match.
	AgreementTolerance float64
	// SummaryCacheTTL bounds how long weekly summaries are served from cache.
	SummaryCacheTTL time.Duration
}

type analyticsService struct {
	submissions repository.SubmissionRepository
	students    repository.StudentRepository
	policy      *AccessPolicy
	cache       *redis.Client
	cfg         AnalyticsConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnalyticsService builds the aggregation engine.
func NewAnalyticsService(subRepo repository.SubmissionRepository, studentRepo repository.StudentRepository, policy *AccessPolicy, cache *redis.Client, cfg AnalyticsConfig, logger zerolog.Logger) AnalyticsService {
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 5 * time.Minute
	}

	return &analyticsService{
		submissions: subRepo,
		students:    studentRepo,
		policy:      policy,
		cache:       cache,
		cfg:         cfg,
		logger:      logger.With().Str("component", "analytics_service").Logger(),
		now:         time.Now,
	}
}

var settledStatuses = []string{models.SubmissionStatusReviewed, models.SubmissionStatusApproved}

func (s *analyticsService) StudentTrend(ctx context.Context, actor Actor, studentID string, windowDays int) (dto.StudentTrendResponse, error) {
	allowed, err := s.policy.CanReadStudent(ctx, actor, studentID)
	if err != nil {
		return dto.StudentTrendResponse{}, err
	}
	if !allowed {
		return dto.StudentTrendResponse{}, ErrUnauthorized
	}

	if windowDays <= 0 {
		windowDays = 30
	}
	from := s.now().AddDate(0, 0, -windowDays)

	submissions, err := s.submissions.ListForStudent(ctx, studentID, settledStatuses, from, s.now())
	if err != nil {
		return dto.StudentTrendResponse{}, err
	}

	scores := effectiveScores(submissions)

	return dto.StudentTrendResponse{
		StudentID:        studentID,
		WindowDays:       windowDays,
		AverageScore:     mean(scores),
		TotalSubmissions: len(submissions),
		ImprovementRate:  improvementRate(scores),
	}, nil
}

func (s *analyticsService) TeacherStatistics(ctx context.Context, actor Actor, from, to *time.Time) (dto.TeacherStatisticsResponse, error) {
	if actor.Role != RoleTeacher && actor.Role != RoleAdmin {
		return dto.TeacherStatisticsResponse{}, ErrUnauthorized
	}

	submissions, err := s.submissions.ListReviewedBy(ctx, actor.UserID, from, to)
	if err != nil {
		return dto.TeacherStatisticsResponse{}, err
	}

	type bucket struct {
		total     int
		scoreSum  float64
		scored    int
		agreement int
	}
	buckets := map[string]*bucket{}

	for _, submission := range submissions {
		if !submission.HasReview() {
			continue
		}

		b, ok := buckets[submission.Subject]
		if !ok {
			b = &bucket{}
			buckets[submission.Subject] = b
		}

		b.total++
		if submission.Review.Score != nil {
			b.scoreSum += *submission.Review.Score
			b.scored++
		}
		if submission.Evaluation.Score != nil && submission.Review.Score != nil &&
			math.Abs(*submission.Evaluation.Score-*submission.Review.Score) <= s.cfg.AgreementTolerance {
			b.agreement++
		}
	}

	stats := make([]dto.SubjectStatistics, 0, len(buckets))
	for subject, b := range buckets {
		row := dto.SubjectStatistics{Subject: subject, TotalReviewed: b.total}
		if b.scored > 0 {
			row.AverageScore = b.scoreSum / float64(b.scored)
		}
		if b.total > 0 {
			row.AIAgreementRate = float64(b.agreement) / float64(b.total)
		}
		stats = append(stats, row)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Subject < stats[j].Subject })

	return dto.TeacherStatisticsResponse{
		TeacherID:        actor.UserID,
		ReviewStats:      stats,
		TotalSubmissions: len(submissions),
	}, nil
}

func (s *analyticsService) WeeklySummary(ctx context.Context, actor Actor, studentID string) (dto.WeeklySummaryResponse, error) {
	allowed, err := s.policy.CanReadStudent(ctx, actor, studentID)
	if err != nil {
		return dto.WeeklySummaryResponse{}, err
	}
	if !allowed {
		return dto.WeeklySummaryResponse{}, ErrUnauthorized
	}

	cacheKey := fmt.Sprintf("summary:weekly:%s", studentID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.WeeklySummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("student_id", studentID).Msg("weekly summary cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read weekly summary cache")
		}
	}

	student, err := s.students.GetByUserID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WeeklySummaryResponse{}, ErrStudentNotFound
		}
		return dto.WeeklySummaryResponse{}, err
	}

	now := s.now()
	submissions, err := s.submissions.ListForStudent(ctx, studentID, settledStatuses, now.AddDate(0, 0, -7), now)
	if err != nil {
		return dto.WeeklySummaryResponse{}, err
	}

	response := buildWeeklySummary(student, submissions)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.SummaryCacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store weekly summary cache")
			}
		}
	}

	return response, nil
}

func buildWeeklySummary(student models.Student, submissions []models.Submission) dto.WeeklySummaryResponse {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := map[string]*bucket{}

	for _, submission := range submissions {
		score := submission.EffectiveScore()
		if score == nil {
			continue
		}
		b, ok := buckets[submission.Subject]
		if !ok {
			b = &bucket{}
			buckets[submission.Subject] = b
		}
		b.sum += *score
		b.count++
	}

	performance := make([]dto.SubjectPerformance, 0, len(buckets))
	for subject, b := range buckets {
		performance = append(performance, dto.SubjectPerformance{
			Subject:      subject,
			AverageScore: b.sum / float64(b.count),
			Count:        b.count,
		})
	}
	sort.Slice(performance, func(i, j int) bool { return performance[i].Subject < performance[j].Subject })

	improvement := improvementRate(effectiveScores(submissions))

	return dto.WeeklySummaryResponse{
		StudentID:          student.UserID,
		StudentName:        student.Name,
		SubmissionsCount:   len(submissions),
		SubjectPerformance: performance,
		Improvement:        improvement,
		NarrativeText:      summaryNarrative(student.Name, len(submissions), improvement, performance),
	}
}

// summaryNarrative renders the weekly narrative from a fixed template so the
// summary stays explainable without a model call.
func summaryNarrative(name string, count int, improvement float64, performance []dto.SubjectPerformance) string {
	if count == 0 {
		return fmt.Sprintf("%s had no reviewed submissions this week.", name)
	}

	direction := "maintained"
	if improvement > 0 {
		direction = "improved"
	} else if improvement < 0 {
		direction = "declined in"
	}

	text := fmt.Sprintf("%s has %s their performance this week with %d submissions.", name, direction, count)
	for _, p := range performance {
		text += fmt.Sprintf(" %s: %.1f%% average.", p.Subject, p.AverageScore)
	}

	return text
}

// effectiveScores extracts the effective score of each submission in order,
// skipping entries with no score (degraded evaluations).
func effectiveScores(submissions []models.Submission) []float64 {
	scores := make([]float64, 0, len(submissions))
	for _, submission := range submissions {
		if score := submission.EffectiveScore(); score != nil {
			scores = append(scores, *score)
		}
	}
	return scores
}

// improvementRate splits the chronological score list into two halves (the
// extra item of an odd count goes to the older half) and reports the newer
// half's mean relative to the older half's, as a percentage. Defined as 0
// for fewer than 2 scores or a zero older mean.
func improvementRate(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}

	olderLen := (len(scores) + 1) / 2
	olderMean := mean(scores[:olderLen])
	newerMean := mean(scores[olderLen:])

	if olderMean == 0 {
		return 0
	}

	return (newerMean - olderMean) / olderMean * 100
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	var sum float64
	for _, score := range scores {
		sum += score
	}
	return sum / float64(len(scores))
}
