package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/repository"
	"github.com/noah-isme/eduai-go-api/pkg/ai"
)

// memorySubmissionRepo mirrors the compare-and-set semantics of the real
// repository so lifecycle tests exercise the same transition rules.
type memorySubmissionRepo struct {
	mu    sync.Mutex
	items map[string]models.Submission
	err   error
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{items: map[string]models.Submission{}}
}

func (r *memorySubmissionRepo) put(submission models.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[submission.ID] = submission
}

func (r *memorySubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if r.err != nil {
		return r.err
	}
	r.put(*submission)
	return nil
}

func (r *memorySubmissionRepo) GetByID(ctx context.Context, id string) (models.Submission, error) {
	if r.err != nil {
		return models.Submission{}, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.items[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *memorySubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Submission
	for _, submission := range r.items {
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		if filter.Subject != nil && submission.Subject != *filter.Subject {
			continue
		}
		if len(filter.Subjects) > 0 && !containsString(filter.Subjects, submission.Subject) {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, submission.Status) {
			continue
		}
		matched = append(matched, submission)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (r *memorySubmissionRepo) ListForStudent(ctx context.Context, studentID string, statuses []string, from, to time.Time) ([]models.Submission, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Submission
	for _, submission := range r.items {
		if submission.StudentID != studentID {
			continue
		}
		if len(statuses) > 0 && !containsString(statuses, submission.Status) {
			continue
		}
		if !from.IsZero() && submission.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && submission.CreatedAt.After(to) {
			continue
		}
		matched = append(matched, submission)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	return matched, nil
}

func (r *memorySubmissionRepo) ListReviewedBy(ctx context.Context, reviewerID string, from, to *time.Time) ([]models.Submission, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Submission
	for _, submission := range r.items {
		if submission.Review.ReviewerID != reviewerID {
			continue
		}
		if from != nil && submission.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && submission.CreatedAt.After(*to) {
			continue
		}
		matched = append(matched, submission)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	return matched, nil
}

func (r *memorySubmissionRepo) MarkEvaluated(ctx context.Context, id string, eval models.AutomatedEvaluation, at time.Time) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.items[id]
	if !ok || submission.Status != models.SubmissionStatusPending {
		return false, nil
	}

	submission.Status = models.SubmissionStatusEvaluated
	submission.Evaluation = eval
	submission.EvaluatedAt = &at
	r.items[id] = submission

	return true, nil
}

func (r *memorySubmissionRepo) SaveReview(ctx context.Context, id string, review models.TeacherReview, newStatus string, fromStatuses []string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.items[id]
	if !ok || !containsString(fromStatuses, submission.Status) {
		return false, nil
	}

	submission.Status = newStatus
	submission.Review = review
	if submission.ReviewedAt == nil {
		submission.ReviewedAt = review.ReviewedAt
	}
	r.items[id] = submission

	return true, nil
}

type stubStudentRepo struct {
	students map[string]models.Student
}

func (r *stubStudentRepo) GetByUserID(ctx context.Context, userID string) (models.Student, error) {
	if student, ok := r.students[userID]; ok {
		return student, nil
	}
	return models.Student{}, gorm.ErrRecordNotFound
}

func (r *stubStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if r.students == nil {
		r.students = map[string]models.Student{}
	}
	r.students[student.UserID] = *student
	return nil
}

type stubTeacherRepo struct {
	teachers map[string]models.Teacher
	reviewed []string
}

func (r *stubTeacherRepo) GetByUserID(ctx context.Context, userID string) (models.Teacher, error) {
	if teacher, ok := r.teachers[userID]; ok {
		return teacher, nil
	}
	return models.Teacher{}, gorm.ErrRecordNotFound
}

func (r *stubTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if r.teachers == nil {
		r.teachers = map[string]models.Teacher{}
	}
	r.teachers[teacher.UserID] = *teacher
	return nil
}

func (r *stubTeacherRepo) AddReviewedSubmission(ctx context.Context, teacherID, submissionID string) error {
	r.reviewed = append(r.reviewed, submissionID)
	return nil
}

type stubParentRepo struct {
	parents map[string]models.Parent
}

func (r *stubParentRepo) GetByUserID(ctx context.Context, userID string) (models.Parent, error) {
	if parent, ok := r.parents[userID]; ok {
		return parent, nil
	}
	return models.Parent{}, gorm.ErrRecordNotFound
}

func (r *stubParentRepo) Create(ctx context.Context, parent *models.Parent) error {
	if r.parents == nil {
		r.parents = map[string]models.Parent{}
	}
	r.parents[parent.UserID] = *parent
	return nil
}

func (r *stubParentRepo) UpdatePreferences(ctx context.Context, userID string, prefs repository.ParentPreferences) (models.Parent, error) {
	parent, ok := r.parents[userID]
	if !ok {
		return models.Parent{}, gorm.ErrRecordNotFound
	}
	if prefs.PreferredLanguage != nil {
		parent.PreferredLanguage = *prefs.PreferredLanguage
	}
	if prefs.NotifyEmail != nil {
		parent.NotifyEmail = *prefs.NotifyEmail
	}
	if prefs.NotifyPush != nil {
		parent.NotifyPush = *prefs.NotifyPush
	}
	if prefs.NotifyAudio != nil {
		parent.NotifyAudio = *prefs.NotifyAudio
	}
	r.parents[userID] = parent
	return parent, nil
}

type stubArtifactRepo struct {
	mu        sync.Mutex
	items     map[string]models.DerivedArtifact
	saveCalls int
}

func newStubArtifactRepo() *stubArtifactRepo {
	return &stubArtifactRepo{items: map[string]models.DerivedArtifact{}}
}

func artifactKey(kind, language, contentHash string) string {
	return kind + "|" + language + "|" + contentHash
}

func (r *stubArtifactRepo) Find(ctx context.Context, kind, language, contentHash string, now time.Time) (models.DerivedArtifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	artifact, ok := r.items[artifactKey(kind, language, contentHash)]
	if !ok || !artifact.ExpiresAt.After(now) {
		return models.DerivedArtifact{}, gorm.ErrRecordNotFound
	}
	return artifact, nil
}

func (r *stubArtifactRepo) Save(ctx context.Context, artifact *models.DerivedArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	r.items[artifactKey(artifact.Kind, artifact.Language, artifact.ContentHash)] = *artifact
	return nil
}

func (r *stubArtifactRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for key, artifact := range r.items {
		if !artifact.ExpiresAt.After(now) {
			delete(r.items, key)
			purged++
		}
	}
	return purged, nil
}

// stubDispatcher fails the first failures calls, then returns result.
type stubDispatcher struct {
	result   ai.EvaluationResult
	err      error
	failures int
	calls    int
}

func (d *stubDispatcher) Evaluate(ctx context.Context, modality string, payload ai.Payload, subjectHint string) (ai.EvaluationResult, error) {
	d.calls++
	if d.err != nil && d.calls <= d.failures {
		return ai.EvaluationResult{}, d.err
	}
	return d.result, nil
}

type stubEvents struct {
	evaluated int
	reviewed  int
}

func (e *stubEvents) SubmissionEvaluated(ctx context.Context, submission models.Submission) {
	e.evaluated++
}

func (e *stubEvents) SubmissionReviewed(ctx context.Context, submission models.Submission) {
	e.reviewed++
}

type stubTranslator struct {
	calls int
	err   error
}

func (t *stubTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return "[" + targetLanguage + "] " + text, nil
}

type stubNarrator struct {
	calls int
	err   error
}

func (n *stubNarrator) Synthesize(ctx context.Context, text, language, voiceID string) (ai.Narration, error) {
	n.calls++
	if n.err != nil {
		return ai.Narration{}, n.err
	}
	return ai.Narration{AudioRef: "media/audio.mp3", DurationSeconds: 4.2}, nil
}

type stubScheduler struct {
	calls []string
}

func (s *stubScheduler) ScheduleRegeneration(submissionID, text string) {
	s.calls = append(s.calls, submissionID)
}

func floatPtr(v float64) *float64 {
	return &v
}
