package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

func newAnalyticsService(repo *memorySubmissionRepo, cache *redis.Client, cfg AnalyticsConfig) AnalyticsService {
	students := &stubStudentRepo{students: map[string]models.Student{
		"student-1": {UserID: "student-1", Name: "Asha", Grade: "6"},
	}}
	policy := NewAccessPolicy(&stubTeacherRepo{}, &stubParentRepo{})

	return NewAnalyticsService(repo, students, policy, cache, cfg, zerolog.Nop())
}

func settledSubmission(id, subject string, score float64, createdAt time.Time) models.Submission {
	evaluatedAt := createdAt.Add(time.Minute)
	return models.Submission{
		ID:          id,
		StudentID:   "student-1",
		Subject:     subject,
		Modality:    models.ModalityText,
		Status:      models.SubmissionStatusReviewed,
		Evaluation:  models.AutomatedEvaluation{Score: floatPtr(score), Feedback: "ok"},
		CreatedAt:   createdAt,
		EvaluatedAt: &evaluatedAt,
	}
}

func TestAnalyticsServiceStudentTrend(t *testing.T) {
	repo := newMemorySubmissionRepo()
	svc := newAnalyticsService(repo, nil, AnalyticsConfig{})

	now := time.Now()
	for i, score := range []float64{60, 70, 80, 90} {
		repo.put(settledSubmission(
			"sub-"+string(rune('a'+i)),
			"science",
			score,
			now.Add(time.Duration(i-10)*time.Hour),
		))
	}

	trend, err := svc.StudentTrend(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, "student-1", 30)
	require.NoError(t, err)
	require.Equal(t, 4, trend.TotalSubmissions)
	require.InDelta(t, 75, trend.AverageScore, 0.001)
	// Older half mean 65, newer half mean 85: (85-65)/65*100.
	require.InDelta(t, 30.769, trend.ImprovementRate, 0.01)
}

func TestAnalyticsServiceStudentTrendFewScores(t *testing.T) {
	repo := newMemorySubmissionRepo()
	svc := newAnalyticsService(repo, nil, AnalyticsConfig{})

	repo.put(settledSubmission("sub-a", "science", 80, time.Now().Add(-time.Hour)))

	trend, err := svc.StudentTrend(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, "student-1", 30)
	require.NoError(t, err)
	require.Equal(t, 1, trend.TotalSubmissions)
	require.Zero(t, trend.ImprovementRate)
}

func TestAnalyticsServiceStudentTrendSkipsDegradedScores(t *testing.T) {
	repo := newMemorySubmissionRepo()
	svc := newAnalyticsService(repo, nil, AnalyticsConfig{})

	now := time.Now()
	repo.put(settledSubmission("sub-a", "science", 60, now.Add(-3*time.Hour)))

	degraded := settledSubmission("sub-b", "science", 0, now.Add(-2*time.Hour))
	degraded.Evaluation.Score = nil
	repo.put(degraded)

	repo.put(settledSubmission("sub-c", "science", 90, now.Add(-time.Hour)))

	trend, err := svc.StudentTrend(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, "student-1", 30)
	require.NoError(t, err)
	require.Equal(t, 3, trend.TotalSubmissions)
	require.InDelta(t, 75, trend.AverageScore, 0.001)
}

func TestAnalyticsServiceStudentTrendDeniesStrangers(t *testing.T) {
	svc := newAnalyticsService(newMemorySubmissionRepo(), nil, AnalyticsConfig{})

	_, err := svc.StudentTrend(context.Background(), Actor{UserID: "student-2", Role: RoleStudent}, "student-1", 30)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAnalyticsServiceTeacherStatisticsAgreement(t *testing.T) {
	repo := newMemorySubmissionRepo()
	svc := newAnalyticsService(repo, nil, AnalyticsConfig{AgreementTolerance: 5})

	now := time.Now()
	reviewedAt := now.Add(-time.Minute)

	agreeing := settledSubmission("sub-a", "science", 80, now.Add(-2*time.Hour))
	agreeing.Review = models.TeacherReview{Score: floatPtr(83), Feedback: "fine", ReviewerID: "teacher-1", ReviewedAt: &reviewedAt}
	repo.put(agreeing)

	disagreeing := settledSubmission("sub-b", "science", 80, now.Add(-time.Hour))
	disagreeing.Review = models.TeacherReview{Score: floatPtr(60), Feedback: "overrated", ReviewerID: "teacher-1", ReviewedAt: &reviewedAt}
	repo.put(disagreeing)

	stats, err := svc.TeacherStatistics(context.Background(), Actor{UserID: "teacher-1", Role: RoleTeacher}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalSubmissions)
	require.Len(t, stats.ReviewStats, 1)
	require.Equal(t, "science", stats.ReviewStats[0].Subject)
	require.Equal(t, 2, stats.ReviewStats[0].TotalReviewed)
	require.InDelta(t, 71.5, stats.ReviewStats[0].AverageScore, 0.001)
	require.InDelta(t, 0.5, stats.ReviewStats[0].AIAgreementRate, 0.001)
}

func TestAnalyticsServiceTeacherStatisticsRequiresTeacher(t *testing.T) {
	svc := newAnalyticsService(newMemorySubmissionRepo(), nil, AnalyticsConfig{})

	_, err := svc.TeacherStatistics(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, nil, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAnalyticsServiceWeeklySummaryCaches(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	repo := newMemorySubmissionRepo()
	svc := newAnalyticsService(repo, redisClient, AnalyticsConfig{SummaryCacheTTL: time.Minute})

	now := time.Now()
	repo.put(settledSubmission("sub-a", "science", 70, now.Add(-48*time.Hour)))
	repo.put(settledSubmission("sub-b", "science", 90, now.Add(-24*time.Hour)))

	actor := Actor{UserID: "student-1", Role: RoleStudent}
	first, err := svc.WeeklySummary(context.Background(), actor, "student-1")
	require.NoError(t, err)
	require.Equal(t, 2, first.SubmissionsCount)
	require.Contains(t, first.NarrativeText, "Asha has improved")
	require.Contains(t, first.NarrativeText, "science: 80.0% average.")

	// New data must not appear until the cache expires.
	repo.put(settledSubmission("sub-c", "math", 50, now.Add(-time.Hour)))

	second, err := svc.WeeklySummary(context.Background(), actor, "student-1")
	require.NoError(t, err)
	require.Equal(t, 2, second.SubmissionsCount)

	mini.FastForward(2 * time.Minute)

	third, err := svc.WeeklySummary(context.Background(), actor, "student-1")
	require.NoError(t, err)
	require.Equal(t, 3, third.SubmissionsCount)
}

func TestAnalyticsServiceWeeklySummaryNoSubmissions(t *testing.T) {
	svc := newAnalyticsService(newMemorySubmissionRepo(), nil, AnalyticsConfig{})

	summary, err := svc.WeeklySummary(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, "student-1")
	require.NoError(t, err)
	require.Zero(t, summary.SubmissionsCount)
	require.Equal(t, "Asha had no reviewed submissions this week.", summary.NarrativeText)
}

func TestImprovementRateHalving(t *testing.T) {
	require.Zero(t, improvementRate(nil))
	require.Zero(t, improvementRate([]float64{80}))
	require.Zero(t, improvementRate([]float64{0, 50}), "zero older mean is defined as no improvement")

	// Odd count: the extra score belongs to the older half.
	require.InDelta(t, 25, improvementRate([]float64{70, 90, 100}), 0.001)
}
