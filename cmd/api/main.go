package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/config"
	"github.com/noah-isme/eduai-go-api/internal/database"
	"github.com/noah-isme/eduai-go-api/internal/handler"
	"github.com/noah-isme/eduai-go-api/internal/middleware"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/observability"
	"github.com/noah-isme/eduai-go-api/internal/repository"
	"github.com/noah-isme/eduai-go-api/internal/router"
	"github.com/noah-isme/eduai-go-api/internal/service"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Teacher{},
		&models.Parent{},
		&models.Guardianship{},
		&models.Submission{},
		&models.ReviewedSubmission{},
		&models.DerivedArtifact{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	openaiClient, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:             cfg.OpenAIAPIKey,
		Model:              cfg.OpenAIModel,
		TranscriptionModel: cfg.TranscriptionModel,
		SpeechModel:        cfg.SpeechModel,
		SpeechVoice:        cfg.SpeechVoice,
		MediaDir:           cfg.MediaDir,
		Logger:             logger,
	})
	if err != nil {
		log.Fatalf("failed to create openai client: %v", err)
	}

	dispatcher := ai.NewDispatcher(cfg.EvaluationTimeout, logger)
	dispatcher.Register(models.ModalityText, openaiClient.TextEvaluator())
	dispatcher.Register(models.ModalityCode, openaiClient.CodeEvaluator())
	dispatcher.Register(models.ModalityHandwritten, openaiClient.HandwrittenEvaluator())
	dispatcher.Register(models.ModalityVoice, openaiClient.VoiceEvaluator())

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	parentRepo := repository.NewParentRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	policy := service.NewAccessPolicy(teacherRepo, parentRepo)
	events := service.NewEventPublisher(natsConn, "eduai.submission", logger)

	narrationService := service.NewNarrationService(submissionRepo, artifactRepo, openaiClient, openaiClient, policy, validate, service.NarrationConfig{
		TranslationTTL: cfg.TranslationTTL,
		AudioTTL:       cfg.AudioTTL,
		SweepInterval:  cfg.ArtifactSweep,
	}, logger)
	submissionService := service.NewSubmissionService(submissionRepo, studentRepo, dispatcher, policy, events, validate, logger)
	reviewService := service.NewReviewService(submissionRepo, teacherRepo, policy, events, narrationService, validate, logger)
	analyticsService := service.NewAnalyticsService(submissionRepo, studentRepo, policy, redisClient, service.AnalyticsConfig{
		AgreementTolerance: cfg.AgreementTolerance,
		SummaryCacheTTL:    cfg.SummaryCacheTTL,
	}, logger)
	parentService := service.NewParentService(parentRepo, studentRepo, submissionRepo, analyticsService, narrationService, validate, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	narrationService.StartSweeper(sweepCtx)

	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, logger)
	narrationHandler := handler.NewNarrationHandler(narrationService, logger)
	parentHandler := handler.NewParentHandler(parentService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		ReviewHandler:     reviewHandler,
		AnalyticsHandler:  analyticsHandler,
		NarrationHandler:  narrationHandler,
		ParentHandler:     parentHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopSweep)
}

func waitForShutdown(app *fiber.App, stopSweep context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
