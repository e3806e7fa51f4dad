package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/eduai-go-api/internal/models"
	"github.com/noah-isme/eduai-go-api/internal/repository"
)

// Actor roles recognised by the access policy.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleAdmin   = "admin"
)

// Actor is the verified identity injected into every operation. Identity
// verification happens upstream; this core only performs authorization.
type Actor struct {
	UserID   string
	Role     string
	Subjects []string
}

// AccessPolicy decides which actor may read or write which submission,
// based on ownership, subject assignment, or guardianship.
type AccessPolicy struct {
	teachers repository.TeacherRepository
	parents  repository.ParentRepository
}

// NewAccessPolicy builds the policy over the profile repositories.
func NewAccessPolicy(teachers repository.TeacherRepository, parents repository.ParentRepository) *AccessPolicy {
	return &AccessPolicy{teachers: teachers, parents: parents}
}

// CanReadSubmission reports whether the actor may view the submission:
// the owning student, a teacher assigned to its subject, a guardian parent,
// or an admin.
func (p *AccessPolicy) CanReadSubmission(ctx context.Context, actor Actor, submission models.Submission) (bool, error) {
	switch actor.Role {
	case RoleAdmin:
		return true, nil
	case RoleStudent:
		return actor.UserID == submission.StudentID, nil
	case RoleTeacher:
		return p.teacherCoversSubject(ctx, actor, submission.Subject)
	case RoleParent:
		parent, err := p.parents.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		return parent.HasChild(submission.StudentID), nil
	}

	return false, nil
}

// CanReadStudent reports whether the actor may view aggregate data for the
// student: the student themselves, a guardian parent, a teacher, or an admin.
func (p *AccessPolicy) CanReadStudent(ctx context.Context, actor Actor, studentID string) (bool, error) {
	switch actor.Role {
	case RoleAdmin, RoleTeacher:
		return true, nil
	case RoleStudent:
		return actor.UserID == studentID, nil
	case RoleParent:
		parent, err := p.parents.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		return parent.HasChild(studentID), nil
	}

	return false, nil
}

// SubjectsForTeacher resolves the subject set a teacher is assigned to,
// preferring the stored profile over the actor's claims.
func (p *AccessPolicy) SubjectsForTeacher(ctx context.Context, actor Actor) ([]string, error) {
	teacher, err := p.teachers.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return actor.Subjects, nil
		}
		return nil, err
	}

	return teacher.Subjects, nil
}

func (p *AccessPolicy) teacherCoversSubject(ctx context.Context, actor Actor, subject string) (bool, error) {
	subjects, err := p.SubjectsForTeacher(ctx, actor)
	if err != nil {
		return false, err
	}

	for _, s := range subjects {
		if s == subject {
			return true, nil
		}
	}
	return false, nil
}
