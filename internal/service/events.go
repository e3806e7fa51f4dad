package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduai-go-api/internal/models"
)

// EventPublisher announces lifecycle transitions to interested consumers
// (notification fan-out, downstream sync). Publishing is best-effort and
// never blocks or fails the primary operation.
type EventPublisher interface {
	SubmissionEvaluated(ctx context.Context, submission models.Submission)
	SubmissionReviewed(ctx context.Context, submission models.Submission)
}

type lifecycleEvent struct {
	SubmissionID string   `json:"submission_id"`
	StudentID    string   `json:"student_id"`
	Subject      string   `json:"subject"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score"`
	OccurredAt   string   `json:"occurred_at"`
}

type natsEventPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewEventPublisher builds a NATS-backed publisher. A nil connection yields
// a no-op publisher so the pipeline runs without a broker in development.
func NewEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	if subjectBase == "" {
		subjectBase = "eduai.submission"
	}

	return &natsEventPublisher{
		conn:        conn,
		subjectBase: strings.TrimSuffix(subjectBase, "."),
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) SubmissionEvaluated(ctx context.Context, submission models.Submission) {
	p.publish(submission, "evaluated")
}

func (p *natsEventPublisher) SubmissionReviewed(ctx context.Context, submission models.Submission) {
	p.publish(submission, "reviewed")
}

func (p *natsEventPublisher) publish(submission models.Submission, kind string) {
	if p.conn == nil {
		return
	}

	event := lifecycleEvent{
		SubmissionID: submission.ID,
		StudentID:    submission.StudentID,
		Subject:      submission.Subject,
		Status:       submission.Status,
		Score:        submission.EffectiveScore(),
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode lifecycle event")
		return
	}

	if err := p.conn.Publish(p.subjectBase+"."+kind, payload); err != nil {
		p.logger.Warn().Err(err).Str("kind", kind).Msg("failed to publish lifecycle event")
	}
}
