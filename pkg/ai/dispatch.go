package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eduai",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"modality"})

	dispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eduai",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"modality"})
)

// Dispatcher routes a submission to the evaluator registered for its
// modality and normalizes the result. It holds no state about submissions;
// persistence belongs to the submission service.
type Dispatcher struct {
	evaluators map[string]Evaluator
	timeout    time.Duration
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewDispatcher builds an empty dispatcher. Timeout bounds every evaluator
// call; a zero timeout defaults to 30 seconds.
func NewDispatcher(timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Dispatcher{
		evaluators: make(map[string]Evaluator),
		timeout:    timeout,
		tracer:     otel.Tracer("github.com/noah-isme/eduai-go-api/pkg/ai/dispatch"),
		logger:     logger.With().Str("component", "evaluator_dispatch").Logger(),
	}
}

// Register binds an evaluator to a modality, replacing any previous binding.
func (d *Dispatcher) Register(modality string, evaluator Evaluator) {
	d.evaluators[strings.ToLower(strings.TrimSpace(modality))] = evaluator
}

// Evaluate invokes the evaluator for the given modality with a bounded
// timeout. Model failures and timeouts surface as ErrEvaluatorUnavailable;
// malformed content surfaces as ErrInvalidPayload.
func (d *Dispatcher) Evaluate(parent context.Context, modality string, payload Payload, subjectHint string) (EvaluationResult, error) {
	modality = strings.ToLower(strings.TrimSpace(modality))

	evaluator, ok := d.evaluators[modality]
	if !ok {
		return EvaluationResult{}, fmt.Errorf("%w: %s", ErrUnsupportedModality, modality)
	}

	ctx, span := d.tracer.Start(parent, "dispatch.evaluate", trace.WithAttributes(
		attribute.String("modality", modality),
		attribute.String("subject", subjectHint),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := evaluator.Evaluate(ctx, payload, subjectHint)
	dispatchDuration.WithLabelValues(modality).Observe(time.Since(start).Seconds())

	if err != nil {
		dispatchFailures.WithLabelValues(modality).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, ErrInvalidPayload) {
			return EvaluationResult{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return EvaluationResult{}, fmt.Errorf("%w: %s evaluation timed out", ErrEvaluatorUnavailable, modality)
		}
		return EvaluationResult{}, fmt.Errorf("%w: %v", ErrEvaluatorUnavailable, err)
	}

	normalize(&result)

	d.logger.Debug().Str("modality", modality).Msg("evaluation dispatched")

	return result, nil
}

// normalize clamps scores into the 0-100 contract and guarantees feedback
// text is present.
func normalize(result *EvaluationResult) {
	if result.Score != nil {
		score := *result.Score
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		result.Score = &score
	}

	if strings.TrimSpace(result.Feedback) == "" {
		result.Feedback = "No feedback provided."
	}

	if result.Confidence != nil {
		confidence := *result.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		result.Confidence = &confidence
	}
}
