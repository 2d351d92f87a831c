// Package access holds the role model and the authorization rules applied
// by handlers. Every rule is a pure function of the verified identity and
// the resource's owning ids.
package access

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// ParseRole accepts "student" or "tutor", case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTutor:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor
}

// Identity is the acting user as established by token verification.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IsStudent reports whether the identity is a student account.
func (i Identity) IsStudent() bool { return i.Role == RoleStudent }

// IsTutor reports whether the identity is a tutor account.
func (i Identity) IsTutor() bool { return i.Role == RoleTutor }

// ActsAs reports whether the identity is userID.
func (i Identity) ActsAs(userID uuid.UUID) bool {
	return i.UserID != uuid.Nil && i.UserID == userID
}

// CanEnroll: only students enroll, and only themselves.
func CanEnroll(actor Identity, studentID uuid.UUID) bool {
	return actor.IsStudent() && actor.ActsAs(studentID)
}

// CanManageCourse: a course and its videos are edited by the tutor that owns it.
func CanManageCourse(actor Identity, tutorID uuid.UUID) bool {
	return actor.IsTutor() && actor.ActsAs(tutorID)
}

// CanViewCourse: published courses are public; drafts are visible to the owner.
func CanViewCourse(actor *Identity, published bool, tutorID uuid.UUID) bool {
	if published {
		return true
	}
	return actor != nil && CanManageCourse(*actor, tutorID)
}

// CanViewEnrollment: the enrolled student or the course's tutor.
func CanViewEnrollment(actor Identity, studentID, courseTutorID uuid.UUID) bool {
	return (actor.IsStudent() && actor.ActsAs(studentID)) || CanManageCourse(actor, courseTutorID)
}

// CanReportProgress: only the enrolled student moves their own progress.
func CanReportProgress(actor Identity, studentID uuid.UUID) bool {
	return actor.IsStudent() && actor.ActsAs(studentID)
}

// CanListStudentEnrollments: a student lists only their own enrollments.
func CanListStudentEnrollments(actor Identity, studentID uuid.UUID) bool {
	return actor.IsStudent() && actor.ActsAs(studentID)
}

// CanViewTutorStats: tutors see only their own dashboard.
func CanViewTutorStats(actor Identity, tutorID uuid.UUID) bool {
	return actor.IsTutor() && actor.ActsAs(tutorID)
}
