package models

import (
	"time"

	"gorm.io/datatypes"
)

// Teacher represents a reviewer assigned to subjects and classes.
type Teacher struct {
	UserID    string                      `gorm:"primaryKey;size:64" json:"user_id"`
	Name      string                      `gorm:"size:255;not null" json:"name"`
	Subjects  datatypes.JSONSlice[string] `json:"subjects"`
	Classes   datatypes.JSONSlice[string] `json:"classes"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// TeachesSubject reports whether the teacher is assigned to the subject.
func (t Teacher) TeachesSubject(subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// ReviewedSubmission records membership of a submission in a teacher's
// reviewed set. Membership only, no ordering guarantee.
type ReviewedSubmission struct {
	TeacherID    string    `gorm:"primaryKey;size:64" json:"teacher_id"`
	SubmissionID string    `gorm:"primaryKey;size:36" json:"submission_id"`
	CreatedAt    time.Time `json:"created_at"`
}
