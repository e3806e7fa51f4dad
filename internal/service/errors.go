package service

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. Handlers map these onto stable error
// kinds; clients must branch on kind, never on message text.
var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrStudentNotFound indicates a student profile could not be found.
	ErrStudentNotFound = errors.New("student not found")
	// ErrTeacherNotFound indicates a teacher profile could not be found.
	ErrTeacherNotFound = errors.New("teacher not found")
	// ErrParentNotFound indicates a parent profile could not be found.
	ErrParentNotFound = errors.New("parent not found")
	// ErrUnauthorized indicates the actor may not access the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNarrationUnavailable indicates the synthesis or translation
	// collaborator failed; callers degrade to text-only presentation.
	ErrNarrationUnavailable = errors.New("narration unavailable")
)

// InvalidStateError indicates a lifecycle transition is not allowed from the
// submission's current status. The current status is always included.
type InvalidStateError struct {
	Current   string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s a %s submission", e.Attempted, e.Current)
}

// NotYetEvaluated builds the InvalidStateError raised when reviewing a
// submission that has no automated evaluation yet.
func NotYetEvaluated(current string) *InvalidStateError {
	return &InvalidStateError{Current: current, Attempted: "review"}
}
