package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/dto"
	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/observability"
	"github.com/noah-isme/eduai-go-api/internal/repository"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

// NarrationConfig tunes the derived-artifact cache.
type NarrationConfig struct {
	// TranslationTTL is the retention window for cached translations.
	TranslationTTL time.Duration
	// AudioTTL is the retention window for cached narrations.
	AudioTTL time.Duration
	// SweepInterval is how often expired artifacts are purged.
	SweepInterval time.Duration
	// GenerationTimeout bounds each collaborator call.
	GenerationTimeout time.Duration
}

func (c *NarrationConfig) applyDefaults() {
	if c.TranslationTTL <= 0 {
		c.TranslationTTL = 7 * 24 * time.Hour
	}
	if c.AudioTTL <= 0 {
		c.AudioTTL = 3 * 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Hour
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 30 * time.Second
	}
}

// NarrationService derives translated text and synthesized audio from
// feedback, cached by (content, language) so repeated requests do not
// re-invoke the external models.
type NarrationService interface {
	Translate(ctx context.Context, actor Actor, submissionID, language string) (dto.TranslationResponse, error)
	Narrate(ctx context.Context, actor Actor, submissionID string, payload dto.NarrationRequest) (dto.NarrationResponse, error)
	TranslateText(ctx context.Context, text, language string) (string, error)
	NarrateText(ctx context.Context, text, language string) (ai.Narration, error)
	ScheduleRegeneration(submissionID, text string)
	StartSweeper(ctx context.Context)
}

type narrationService struct {
	submissions repository.SubmissionRepository
	artifacts   repository.ArtifactRepository
	translator  ai.Translator
	narrator    ai.Narrator
	policy      *AccessPolicy
	validator   *validator.Validate
	cfg         NarrationConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewNarrationService constructs the narration/translation pipeline.
func NewNarrationService(subRepo repository.SubmissionRepository, artifactRepo repository.ArtifactRepository, translator ai.Translator, narrator ai.Narrator, policy *AccessPolicy, validate *validator.Validate, cfg NarrationConfig, logger zerolog.Logger) NarrationService {
	cfg.applyDefaults()

	return &narrationService{
		submissions: subRepo,
		artifacts:   artifactRepo,
		translator:  translator,
		narrator:    narrator,
		policy:      policy,
		validator:   validate,
		cfg:         cfg,
		logger:      logger.With().Str("component", "narration_service").Logger(),
		now:         time.Now,
	}
}

func (s *narrationService) Translate(ctx context.Context, actor Actor, submissionID, language string) (dto.TranslationResponse, error) {
	text, err := s.feedbackFor(ctx, actor, submissionID)
	if err != nil {
		return dto.TranslationResponse{}, err
	}

	if language == models.LanguageEnglish {
		return dto.TranslationResponse{SubmissionID: submissionID, Language: language, TranslatedText: text}, nil
	}

	hash := contentHash(text)
	if cached, err := s.artifacts.Find(ctx, models.ArtifactKindTranslation, language, hash, s.now()); err == nil {
		observability.NarrationCache().WithLabelValues(models.ArtifactKindTranslation, "hit").Inc()
		return dto.TranslationResponse{
			SubmissionID:   submissionID,
			Language:       language,
			TranslatedText: cached.Text,
			Cached:         true,
		}, nil
	}
	observability.NarrationCache().WithLabelValues(models.ArtifactKindTranslation, "miss").Inc()

	translated, err := s.translateOnce(ctx, text, language)
	if err != nil {
		return dto.TranslationResponse{}, err
	}

	artifact := models.DerivedArtifact{
		SubmissionID: submissionID,
		Kind:         models.ArtifactKindTranslation,
		Language:     language,
		ContentHash:  hash,
		Text:         translated,
		ExpiresAt:    s.now().Add(s.cfg.TranslationTTL),
	}
	if err := s.artifacts.Save(ctx, &artifact); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache translation artifact")
	}

	return dto.TranslationResponse{SubmissionID: submissionID, Language: language, TranslatedText: translated}, nil
}

func (s *narrationService) Narrate(ctx context.Context, actor Actor, submissionID string, payload dto.NarrationRequest) (dto.NarrationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NarrationResponse{}, err
	}

	text, err := s.feedbackFor(ctx, actor, submissionID)
	if err != nil {
		return dto.NarrationResponse{}, err
	}

	if payload.Language != models.LanguageEnglish {
		translation, err := s.Translate(ctx, actor, submissionID, payload.Language)
		if err != nil {
			return dto.NarrationResponse{}, err
		}
		text = translation.TranslatedText
	}

	hash := contentHash(text)
	if cached, err := s.artifacts.Find(ctx, models.ArtifactKindAudio, payload.Language, hash, s.now()); err == nil {
		observability.NarrationCache().WithLabelValues(models.ArtifactKindAudio, "hit").Inc()
		return dto.NarrationResponse{
			SubmissionID:    submissionID,
			Language:        payload.Language,
			AudioRef:        cached.AudioRef,
			DurationSeconds: cached.DurationSeconds,
			Cached:          true,
		}, nil
	}
	observability.NarrationCache().WithLabelValues(models.ArtifactKindAudio, "miss").Inc()

	narration, err := s.synthesizeOnce(ctx, text, payload.Language, payload.VoiceID)
	if err != nil {
		return dto.NarrationResponse{}, err
	}

	artifact := models.DerivedArtifact{
		SubmissionID:    submissionID,
		Kind:            models.ArtifactKindAudio,
		Language:        payload.Language,
		ContentHash:     hash,
		AudioRef:        narration.AudioRef,
		DurationSeconds: narration.DurationSeconds,
		ExpiresAt:       s.now().Add(s.cfg.AudioTTL),
	}
	if err := s.artifacts.Save(ctx, &artifact); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache narration artifact")
	}

	return dto.NarrationResponse{
		SubmissionID:    submissionID,
		Language:        payload.Language,
		AudioRef:        narration.AudioRef,
		DurationSeconds: narration.DurationSeconds,
	}, nil
}

// TranslateText translates free-standing text (summaries) without a backing
// submission, cached under the same composite key scheme.
func (s *narrationService) TranslateText(ctx context.Context, text, language string) (string, error) {
	if language == models.LanguageEnglish {
		return text, nil
	}

	hash := contentHash(text)
	if cached, err := s.artifacts.Find(ctx, models.ArtifactKindTranslation, language, hash, s.now()); err == nil {
		observability.NarrationCache().WithLabelValues(models.ArtifactKindTranslation, "hit").Inc()
		return cached.Text, nil
	}
	observability.NarrationCache().WithLabelValues(models.ArtifactKindTranslation, "miss").Inc()

	translated, err := s.translateOnce(ctx, text, language)
	if err != nil {
		return "", err
	}

	artifact := models.DerivedArtifact{
		Kind:        models.ArtifactKindTranslation,
		Language:    language,
		ContentHash: hash,
		Text:        translated,
		ExpiresAt:   s.now().Add(s.cfg.TranslationTTL),
	}
	if err := s.artifacts.Save(ctx, &artifact); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache translation artifact")
	}

	return translated, nil
}

// NarrateText synthesizes free-standing text (summaries), cached like
// TranslateText.
func (s *narrationService) NarrateText(ctx context.Context, text, language string) (ai.Narration, error) {
	hash := contentHash(text)
	if cached, err := s.artifacts.Find(ctx, models.ArtifactKindAudio, language, hash, s.now()); err == nil {
		observability.NarrationCache().WithLabelValues(models.ArtifactKindAudio, "hit").Inc()
		return ai.Narration{AudioRef: cached.AudioRef, DurationSeconds: cached.DurationSeconds}, nil
	}
	observability.NarrationCache().WithLabelValues(models.ArtifactKindAudio, "miss").Inc()

	narration, err := s.synthesizeOnce(ctx, text, language, "")
	if err != nil {
		return ai.Narration{}, err
	}

	artifact := models.DerivedArtifact{
		Kind:            models.ArtifactKindAudio,
		Language:        language,
		ContentHash:     hash,
		AudioRef:        narration.AudioRef,
		DurationSeconds: narration.DurationSeconds,
		ExpiresAt:       s.now().Add(s.cfg.AudioTTL),
	}
	if err := s.artifacts.Save(ctx, &artifact); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache narration artifact")
	}

	return narration, nil
}

// ScheduleRegeneration refreshes the english narration for changed feedback
// in the background. Failures are logged and counted, never propagated.
func (s *narrationService) ScheduleRegeneration(submissionID, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GenerationTimeout)
		defer cancel()

		if _, err := s.NarrateText(ctx, text, models.LanguageEnglish); err != nil {
			observability.NarrationRegenFailures().Inc()
			s.logger.Warn().Err(err).Str("submission_id", submissionID).Msg("background narration regeneration failed")
			return
		}

		s.logger.Debug().Str("submission_id", submissionID).Msg("narration regenerated")
	}()
}

// StartSweeper purges expired artifacts on a fixed interval until the
// context is cancelled.
func (s *narrationService) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := s.artifacts.PurgeExpired(ctx, s.now())
				if err != nil {
					s.logger.Warn().Err(err).Msg("artifact sweep failed")
					continue
				}
				if purged > 0 {
					s.logger.Info().Int64("purged", purged).Msg("expired artifacts purged")
				}
			}
		}
	}()
}

func (s *narrationService) feedbackFor(ctx context.Context, actor Actor, submissionID string) (string, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSubmissionNotFound
		}
		return "", err
	}

	allowed, err := s.policy.CanReadSubmission(ctx, actor, submission)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrUnauthorized
	}

	if !submission.HasEvaluation() {
		return "", &InvalidStateError{Current: submission.Status, Attempted: "narrate"}
	}

	return submission.EffectiveFeedback(), nil
}

func (s *narrationService) translateOnce(ctx context.Context, text, language string) (string, error) {
	translated, err := s.translator.Translate(ctx, text, language)
	if err == nil {
		return translated, nil
	}

	translated, retryErr := s.translator.Translate(ctx, text, language)
	if retryErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNarrationUnavailable, retryErr)
	}

	return translated, nil
}

func (s *narrationService) synthesizeOnce(ctx context.Context, text, language, voiceID string) (ai.Narration, error) {
	narration, err := s.narrator.Synthesize(ctx, text, language, voiceID)
	if err == nil {
		return narration, nil
	}

	narration, retryErr := s.narrator.Synthesize(ctx, text, language, voiceID)
	if retryErr != nil {
		return ai.Narration{}, fmt.Errorf("%w: %v", ErrNarrationUnavailable, retryErr)
	}

	return narration, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
