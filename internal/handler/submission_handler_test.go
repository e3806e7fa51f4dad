package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/config"
	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/handler"
	"github.com/noah-isme/eduai-go-api/internal/middleware"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/repository"
	"github.com/noah-isme/eduai-go-api/internal/router"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/internal/utils"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

type testDispatcher struct {
	result ai.EvaluationResult
}

func (d testDispatcher) Evaluate(_ context.Context, _ string, _ ai.Payload, _ string) (ai.EvaluationResult, error) {
	return d.result, nil
}

type testEvents struct{}

func (testEvents) SubmissionEvaluated(context.Context, models.Submission) {}
func (testEvents) SubmissionReviewed(context.Context, models.Submission)  {}

type testTranslator struct{}

func (testTranslator) Translate(_ context.Context, text, targetLanguage string) (string, error) {
	return "[" + targetLanguage + "] " + text, nil
}

type testNarrator struct{}

func (testNarrator) Synthesize(context.Context, string, string, string) (ai.Narration, error) {
	return ai.Narration{AudioRef: "media/audio.mp3", DurationSeconds: 3.5}, nil
}

func asActor(actor service.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, actor.UserID)
		c.Locals(middleware.LocalUserRole, actor.Role)
		c.Locals(middleware.LocalSubjects, actor.Subjects)
		return c.Next()
	}
}

func setupSubmissionApp(t *testing.T, actor service.Actor) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Teacher{}, &models.Parent{}, &models.Guardianship{}, &models.Submission{}, &models.ReviewedSubmission{}, &models.DerivedArtifact{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	parentRepo := repository.NewParentRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	policy := service.NewAccessPolicy(teacherRepo, parentRepo)
	score := 85.0
	dispatcher := testDispatcher{result: ai.EvaluationResult{Score: &score, Feedback: "Well structured"}}
	submissionService := service.NewSubmissionService(submissionRepo, studentRepo, dispatcher, policy, testEvents{}, validate, logger)
	reviewService := service.NewReviewService(submissionRepo, teacherRepo, policy, testEvents{}, nil, validate, logger)
	narrationService := service.NewNarrationService(submissionRepo, artifactRepo, testTranslator{}, testNarrator{}, policy, validate, service.NarrationConfig{}, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		ReviewHandler:     handler.NewReviewHandler(reviewService, logger),
		NarrationHandler:  handler.NewNarrationHandler(narrationService, logger),
		JWTMiddleware:     asActor(actor),
	})

	return app, db
}

func TestSubmissionHandlerCreateAndGet(t *testing.T) {
	actor := service.Actor{UserID: "student-1", Role: service.RoleStudent}
	app, db := setupSubmissionApp(t, actor)

	require.NoError(t, db.Create(&models.Student{UserID: "student-1", Name: "Asha", Grade: "6"}).Error)

	body, err := json.Marshal(dto.SubmissionCreateRequest{
		Modality: models.ModalityText,
		Subject:  "science",
		Topic:    "water cycle",
		Content:  "Evaporation, condensation, precipitation, collection.",
	})
	require.NoError(t, err)

	request := httptest.NewRequest(fiber.MethodPost, "/api/v2/submissions", bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")

	response, err := app.Test(request, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, response.StatusCode)

	var envelope struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.Equal(t, models.SubmissionStatusEvaluated, envelope.Data.Status)
	require.NotNil(t, envelope.Data.Evaluation)
	require.InDelta(t, 85, *envelope.Data.Evaluation.Score, 0.001)

	request = httptest.NewRequest(fiber.MethodGet, "/api/v2/submissions/"+envelope.Data.ID, nil)
	response, err = app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)
}

func TestHealthEndpointReportsUptime(t *testing.T) {
	app, _ := setupSubmissionApp(t, service.Actor{UserID: "student-1", Role: service.RoleStudent})

	request := httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	var envelope struct {
		Data handler.HealthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	require.Equal(t, "ok", envelope.Data.Status)
	require.Equal(t, "Test", envelope.Data.Service)
	require.GreaterOrEqual(t, envelope.Data.UptimeSeconds, 0.0)
}

func TestSubmissionHandlerCreateRejectsBadModality(t *testing.T) {
	actor := service.Actor{UserID: "student-1", Role: service.RoleStudent}
	app, db := setupSubmissionApp(t, actor)

	require.NoError(t, db.Create(&models.Student{UserID: "student-1", Name: "Asha", Grade: "6"}).Error)

	request := httptest.NewRequest(fiber.MethodPost, "/api/v2/submissions", bytes.NewReader([]byte(`{"modality":"video","subject":"science","content":"clip"}`)))
	request.Header.Set("Content-Type", "application/json")

	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	require.False(t, envelope.Success)
	require.Equal(t, utils.KindValidationError, envelope.Kind)
}

func TestSubmissionHandlerGetUnknownID(t *testing.T) {
	actor := service.Actor{UserID: "student-1", Role: service.RoleStudent}
	app, _ := setupSubmissionApp(t, actor)

	request := httptest.NewRequest(fiber.MethodGet, "/api/v2/submissions/missing", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, response.StatusCode)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	require.Equal(t, utils.KindNotFound, envelope.Kind)
}

func TestReviewHandlerRejectsStudents(t *testing.T) {
	actor := service.Actor{UserID: "student-1", Role: service.RoleStudent}
	app, _ := setupSubmissionApp(t, actor)

	request := httptest.NewRequest(fiber.MethodPut, "/api/v2/submissions/sub-1/review", bytes.NewReader([]byte(`{"score":70}`)))
	request.Header.Set("Content-Type", "application/json")

	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, response.StatusCode)
}

func TestTranslateRouteStaysOpenToStudents(t *testing.T) {
	actor := service.Actor{UserID: "student-2", Role: service.RoleStudent}
	app, db := setupSubmissionApp(t, actor)

	evaluatedAt := time.Now().Add(-time.Hour)
	score := 80.0
	require.NoError(t, db.Create(&models.Submission{
		ID:          "sub-translate",
		StudentID:   "student-2",
		Subject:     "science",
		Modality:    models.ModalityText,
		Status:      models.SubmissionStatusEvaluated,
		Evaluation:  models.AutomatedEvaluation{Score: &score, Feedback: "Good observations"},
		CreatedAt:   time.Now().Add(-2 * time.Hour),
		EvaluatedAt: &evaluatedAt,
	}).Error)

	request := httptest.NewRequest(fiber.MethodGet, "/api/v2/submissions/sub-translate/translate?language=tamil", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	var envelope struct {
		Data dto.TranslationResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	require.Equal(t, "[tamil] Good observations", envelope.Data.TranslatedText)
}

func TestReviewHandlerOverride(t *testing.T) {
	actor := service.Actor{UserID: "teacher-1", Role: service.RoleTeacher, Subjects: []string{"science"}}
	app, db := setupSubmissionApp(t, actor)

	evaluatedAt := time.Now().Add(-time.Hour)
	score := 75.0
	require.NoError(t, db.Create(&models.Submission{
		ID:          "sub-review",
		StudentID:   "student-1",
		Subject:     "science",
		Modality:    models.ModalityText,
		Status:      models.SubmissionStatusEvaluated,
		Evaluation:  models.AutomatedEvaluation{Score: &score, Feedback: "Automated feedback"},
		CreatedAt:   time.Now().Add(-2 * time.Hour),
		EvaluatedAt: &evaluatedAt,
	}).Error)

	request := httptest.NewRequest(fiber.MethodPut, "/api/v2/submissions/sub-review/review", bytes.NewReader([]byte(`{"score":68,"feedback":"Show your working"}`)))
	request.Header.Set("Content-Type", "application/json")

	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	var envelope struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	require.Equal(t, models.SubmissionStatusReviewed, envelope.Data.Status)
	require.InDelta(t, 68, *envelope.Data.EffectiveScore, 0.001)
}
