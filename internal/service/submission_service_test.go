package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

func newSubmissionService(t *testing.T, repo *memorySubmissionRepo, dispatcher *stubDispatcher, events *stubEvents) SubmissionService {
	t.Helper()

	students := &stubStudentRepo{students: map[string]models.Student{
		"student-1": {UserID: "student-1", Name: "Asha", Grade: "6"},
	}}
	policy := NewAccessPolicy(&stubTeacherRepo{}, &stubParentRepo{})
	svc := NewSubmissionService(repo, students, dispatcher, policy, events, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	svc.(*submissionService).retryBackoff = time.Millisecond

	return svc
}

func TestSubmissionServiceCreateEvaluatesInline(t *testing.T) {
	repo := newMemorySubmissionRepo()
	dispatcher := &stubDispatcher{result: ai.EvaluationResult{Score: floatPtr(82), Feedback: "Solid work", Confidence: floatPtr(0.9)}}
	events := &stubEvents{}
	svc := newSubmissionService(t, repo, dispatcher, events)

	actor := Actor{UserID: "student-1", Role: RoleStudent}
	response, err := svc.Create(context.Background(), actor, dto.SubmissionCreateRequest{
		Modality: models.ModalityText,
		Subject:  "science",
		Content:  "The water cycle has four stages.",
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusEvaluated, response.Status)
	require.NotNil(t, response.Evaluation)
	require.InDelta(t, 82, *response.Evaluation.Score, 0.001)
	require.Equal(t, 1, dispatcher.calls)
	require.Equal(t, 1, events.evaluated)
}

func TestSubmissionServiceCreateRejectsUnknownModality(t *testing.T) {
	svc := newSubmissionService(t, newMemorySubmissionRepo(), &stubDispatcher{}, &stubEvents{})

	_, err := svc.Create(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, dto.SubmissionCreateRequest{
		Modality: "video",
		Subject:  "science",
		Content:  "clip",
	})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
}

func TestSubmissionServiceCreatePropagatesUnsupportedModality(t *testing.T) {
	dispatcher := &stubDispatcher{err: ai.ErrUnsupportedModality, failures: 10}
	svc := newSubmissionService(t, newMemorySubmissionRepo(), dispatcher, &stubEvents{})

	_, err := svc.Create(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, dto.SubmissionCreateRequest{
		Modality: models.ModalityVoice,
		Subject:  "science",
		Content:  "recording-ref",
	})
	require.ErrorIs(t, err, ai.ErrUnsupportedModality)
	require.Equal(t, 1, dispatcher.calls)
}

func TestSubmissionServiceCreateRecoversAfterRetry(t *testing.T) {
	repo := newMemorySubmissionRepo()
	dispatcher := &stubDispatcher{
		result:   ai.EvaluationResult{Score: floatPtr(70), Feedback: "Recovered"},
		err:      ai.ErrEvaluatorUnavailable,
		failures: 1,
	}
	svc := newSubmissionService(t, repo, dispatcher, &stubEvents{})

	response, err := svc.Create(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, dto.SubmissionCreateRequest{
		Modality: models.ModalityCode,
		Subject:  "math",
		Content:  "def f(): pass",
	})
	require.NoError(t, err)
	require.Equal(t, 2, dispatcher.calls)
	require.Equal(t, models.SubmissionStatusEvaluated, response.Status)
	require.InDelta(t, 70, *response.Evaluation.Score, 0.001)
}

func TestSubmissionServiceCreateDegradesWhenEvaluatorStaysDown(t *testing.T) {
	repo := newMemorySubmissionRepo()
	dispatcher := &stubDispatcher{err: ai.ErrEvaluatorUnavailable, failures: 10}
	svc := newSubmissionService(t, repo, dispatcher, &stubEvents{})

	response, err := svc.Create(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, dto.SubmissionCreateRequest{
		Modality: models.ModalityText,
		Subject:  "science",
		Content:  "essay",
	})
	require.NoError(t, err)
	require.Equal(t, 2, dispatcher.calls)
	require.Equal(t, models.SubmissionStatusEvaluated, response.Status)
	require.NotNil(t, response.Evaluation)
	require.Nil(t, response.Evaluation.Score)
	require.Equal(t, DegradedFeedback, response.Evaluation.Feedback)
}

func TestSubmissionServiceCreateRequiresStudentProfile(t *testing.T) {
	svc := newSubmissionService(t, newMemorySubmissionRepo(), &stubDispatcher{}, &stubEvents{})

	_, err := svc.Create(context.Background(), Actor{UserID: "student-99", Role: RoleStudent}, dto.SubmissionCreateRequest{
		Modality: models.ModalityText,
		Subject:  "science",
		Content:  "essay",
	})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestSubmissionServiceRecordEvaluationIsIdempotent(t *testing.T) {
	repo := newMemorySubmissionRepo()
	events := &stubEvents{}
	svc := newSubmissionService(t, repo, &stubDispatcher{}, events)

	repo.put(models.Submission{
		ID:        "sub-1",
		StudentID: "student-1",
		Subject:   "science",
		Modality:  models.ModalityText,
		Status:    models.SubmissionStatusPending,
		CreatedAt: time.Now(),
	})

	first, err := svc.RecordEvaluation(context.Background(), "sub-1", ai.EvaluationResult{Score: floatPtr(88), Feedback: "Good"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusEvaluated, first.Status)
	require.InDelta(t, 88, *first.Evaluation.Score, 0.001)

	second, err := svc.RecordEvaluation(context.Background(), "sub-1", ai.EvaluationResult{Score: floatPtr(12), Feedback: "Late duplicate"})
	require.NoError(t, err)
	require.InDelta(t, 88, *second.Evaluation.Score, 0.001)
	require.Equal(t, "Good", second.Evaluation.Feedback)
	require.Equal(t, 1, events.evaluated)
}

func TestSubmissionServiceGetEnforcesOwnership(t *testing.T) {
	repo := newMemorySubmissionRepo()
	svc := newSubmissionService(t, repo, &stubDispatcher{}, &stubEvents{})

	repo.put(models.Submission{ID: "sub-1", StudentID: "student-1", Subject: "science", Status: models.SubmissionStatusEvaluated, CreatedAt: time.Now()})

	_, err := svc.Get(context.Background(), Actor{UserID: "student-2", Role: RoleStudent}, "sub-1")
	require.ErrorIs(t, err, ErrUnauthorized)

	response, err := svc.Get(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, "sub-1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", response.ID)
}

func TestSubmissionServiceListScopesByRole(t *testing.T) {
	repo := newMemorySubmissionRepo()
	svc := newSubmissionService(t, repo, &stubDispatcher{}, &stubEvents{})

	now := time.Now()
	repo.put(models.Submission{ID: "sub-1", StudentID: "student-1", Subject: "science", Status: models.SubmissionStatusEvaluated, CreatedAt: now.Add(-time.Hour)})
	repo.put(models.Submission{ID: "sub-2", StudentID: "student-2", Subject: "math", Status: models.SubmissionStatusEvaluated, CreatedAt: now})

	own, err := svc.List(context.Background(), Actor{UserID: "student-1", Role: RoleStudent}, dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), own.Total)
	require.Equal(t, "sub-1", own.Submissions[0].ID)

	taught, err := svc.List(context.Background(), Actor{UserID: "teacher-1", Role: RoleTeacher, Subjects: []string{"math"}}, dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), taught.Total)
	require.Equal(t, "sub-2", taught.Submissions[0].ID)

	all, err := svc.List(context.Background(), Actor{UserID: "admin-1", Role: RoleAdmin}, dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), all.Total)
	require.Equal(t, "sub-2", all.Submissions[0].ID, "expected newest first")
}
