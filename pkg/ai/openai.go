package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration for the OpenAI-backed collaborators.
type OpenAIConfig struct {
	APIKey             string
	Model              string
	TranscriptionModel string
	SpeechModel        string
	SpeechVoice        string
	MaxTokens          int
	Temperature        float32
	MediaDir           string
	Logger             zerolog.Logger
}

// OpenAIClient implements every external collaborator (per-modality
// evaluators, translator, narrator) against the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = string(openai.VoiceAlloy)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = os.TempDir()
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/eduai-go-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// TextEvaluator returns the evaluator for plain text submissions.
func (c *OpenAIClient) TextEvaluator() Evaluator {
	return evaluatorFunc(func(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error) {
		if strings.TrimSpace(payload.Content) == "" {
			return EvaluationResult{}, fmt.Errorf("%w: empty text", ErrInvalidPayload)
		}
		prompt := fmt.Sprintf("Subject: %s\n\nStudent answer:\n%s", subjectHint, payload.Content)
		return c.grade(ctx, "text", textSystemPrompt, prompt)
	})
}

// CodeEvaluator returns the evaluator for code submissions.
func (c *OpenAIClient) CodeEvaluator() Evaluator {
	return evaluatorFunc(func(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error) {
		if strings.TrimSpace(payload.Content) == "" {
			return EvaluationResult{}, fmt.Errorf("%w: empty source", ErrInvalidPayload)
		}
		prompt := fmt.Sprintf("Subject: %s\nLanguage: %s\n\n```\n%s\n```", subjectHint, payload.Language, payload.Content)
		return c.grade(ctx, "code", codeSystemPrompt, prompt)
	})
}

// HandwrittenEvaluator returns the evaluator for handwritten image
// submissions. The payload content is the image reference.
func (c *OpenAIClient) HandwrittenEvaluator() Evaluator {
	return evaluatorFunc(func(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error) {
		if strings.TrimSpace(payload.Content) == "" {
			return EvaluationResult{}, fmt.Errorf("%w: missing image reference", ErrInvalidPayload)
		}

		ctx, span := c.tracer.Start(ctx, "openai.evaluate_handwritten", trace.WithAttributes(
			attribute.String("model", c.cfg.Model),
		))
		defer span.End()

		request := openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: handwrittenSystemPrompt},
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: "Subject: " + subjectHint},
						{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: payload.Content}},
					},
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		}

		resp, err := c.client.CreateChatCompletion(ctx, request)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return EvaluationResult{}, fmt.Errorf("openai handwritten evaluate: %w", err)
		}

		return parseGradingResponse(resp)
	})
}

// VoiceEvaluator returns the evaluator for voice submissions. The payload
// content is a local path to the recorded audio; the transcript is graded
// like a text answer and attached to the detail map.
func (c *OpenAIClient) VoiceEvaluator() Evaluator {
	return evaluatorFunc(func(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error) {
		if strings.TrimSpace(payload.Content) == "" {
			return EvaluationResult{}, fmt.Errorf("%w: missing audio reference", ErrInvalidPayload)
		}

		ctx, span := c.tracer.Start(ctx, "openai.evaluate_voice", trace.WithAttributes(
			attribute.String("model", c.cfg.TranscriptionModel),
		))
		defer span.End()

		transcription, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    c.cfg.TranscriptionModel,
			FilePath: payload.Content,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return EvaluationResult{}, fmt.Errorf("openai transcribe: %w", err)
		}

		prompt := fmt.Sprintf("Subject: %s\n\nSpoken answer transcript:\n%s", subjectHint, transcription.Text)
		result, err := c.grade(ctx, "voice", textSystemPrompt, prompt)
		if err != nil {
			return EvaluationResult{}, err
		}

		if result.Detail == nil {
			result.Detail = map[string]interface{}{}
		}
		result.Detail["transcript"] = transcription.Text
		if transcription.Language != "" {
			result.Detail["language_detected"] = transcription.Language
		}

		return result, nil
	})
}

// Translate converts feedback text into the target language.
func (c *OpenAIClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", ErrInvalidPayload)
	}

	ctx, span := c.tracer.Start(ctx, "openai.translate", trace.WithAttributes(
		attribute.String("target_language", targetLanguage),
	))
	defer span.End()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Translate the user's message into " + targetLanguage + ". Respond with the translation only."},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai translate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Synthesize converts feedback text into spoken audio stored under the
// configured media directory.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, language, voiceID string) (Narration, error) {
	if strings.TrimSpace(text) == "" {
		return Narration{}, fmt.Errorf("%w: empty text", ErrInvalidPayload)
	}

	ctx, span := c.tracer.Start(ctx, "openai.synthesize", trace.WithAttributes(
		attribute.String("language", language),
	))
	defer span.End()

	voice := openai.SpeechVoice(c.cfg.SpeechVoice)
	if voiceID != "" {
		voice = openai.SpeechVoice(voiceID)
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(c.cfg.SpeechModel),
		Input: text,
		Voice: voice,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Narration{}, fmt.Errorf("openai synthesize: %w", err)
	}
	defer resp.Close()

	name := filepath.Join(c.cfg.MediaDir, "narration-"+uuid.NewString()+".mp3")
	file, err := os.Create(name)
	if err != nil {
		return Narration{}, fmt.Errorf("create narration file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp); err != nil {
		return Narration{}, fmt.Errorf("write narration file: %w", err)
	}

	return Narration{
		AudioRef:        name,
		DurationSeconds: estimateSpeechSeconds(text),
	}, nil
}

func (c *OpenAIClient) grade(parent context.Context, modality, systemPrompt, userPrompt string) (EvaluationResult, error) {
	ctx, span := c.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("modality", modality),
	))
	defer span.End()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, fmt.Errorf("openai evaluate: %w", err)
	}

	return parseGradingResponse(resp)
}

type evaluatorFunc func(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error) {
	return f(ctx, payload, subjectHint)
}

const (
	textSystemPrompt = "You are an automated grader for student answers. Respond with a JSON object containing score (0-100)," +
		" feedback, optional confidence (0-1), and an optional detail object with positive_points and areas_for_improvement arrays."
	codeSystemPrompt = "You are an automated code reviewer for student code. Respond with a JSON object containing score (0-100)," +
		" feedback, optional confidence (0-1), and a detail object with passed_tests, total_tests, and runtime when determinable."
	handwrittenSystemPrompt = "You read handwritten student work. Respond with a JSON object containing score (0-100), feedback," +
		" optional confidence (0-1), and a detail object whose extracted_text field holds the transcribed content."
)

func parseGradingResponse(resp openai.ChatCompletionResponse) (EvaluationResult, error) {
	if len(resp.Choices) == 0 {
		return EvaluationResult{}, fmt.Errorf("no choices returned from openai")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var data struct {
		Score      *float64               `json:"score"`
		Feedback   string                 `json:"feedback"`
		Confidence *float64               `json:"confidence"`
		Detail     map[string]interface{} `json:"detail"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return EvaluationResult{}, fmt.Errorf("parse evaluation json: %w", err)
	}

	return EvaluationResult{
		Score:      data.Score,
		Feedback:   data.Feedback,
		Detail:     data.Detail,
		Confidence: data.Confidence,
	}, nil
}

// estimateSpeechSeconds approximates narration length from word count; the
// speech endpoint does not report duration.
func estimateSpeechSeconds(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / 2.5
}
