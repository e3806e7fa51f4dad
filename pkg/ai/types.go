package ai

import (
	"context"
	"errors"
)

// Payload carries the submission content handed to an evaluator. Content is
// the raw text or code for inline modalities, or a storage reference for
// handwritten images and voice recordings.
type Payload struct {
	Content  string
	Language string
}

// EvaluationResult is the normalized outcome every evaluator must produce.
// Score is 0-100; Detail varies by modality (test counts for code, extracted
// text for handwritten, transcript for voice).
type EvaluationResult struct {
	Score      *float64               `json:"score"`
	Feedback   string                 `json:"feedback"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	Confidence *float64               `json:"confidence,omitempty"`
}

// Evaluator grades one modality of student work.
type Evaluator interface {
	Evaluate(ctx context.Context, payload Payload, subjectHint string) (EvaluationResult, error)
}

// Translator converts feedback text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Narration is the result of synthesizing feedback into audio.
type Narration struct {
	AudioRef        string  `json:"audio_ref"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Narrator converts feedback text into spoken audio.
type Narrator interface {
	Synthesize(ctx context.Context, text, language, voiceID string) (Narration, error)
}

// ErrUnsupportedModality indicates no evaluator is registered for a modality.
var ErrUnsupportedModality = errors.New("unsupported modality")

// ErrEvaluatorUnavailable indicates the underlying model call failed or
// timed out. Callers retry once before degrading.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// ErrInvalidPayload indicates the submission content itself is malformed,
// as opposed to the evaluator service being down.
var ErrInvalidPayload = errors.New("invalid payload")
