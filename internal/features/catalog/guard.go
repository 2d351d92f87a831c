// Package catalog decides whether a course can be enrolled in and exposes
// the derived course facts shown in the public catalog.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// Eligibility is what an enrollment needs to know about the course it targets.
type Eligibility struct {
	Course        course.Course
	Price         types.Money
	VideoCount    int
	TotalDuration int
}

// Free reports whether the course can be joined without payment.
func (e Eligibility) Free() bool { return e.Course.IsFree() }

// Guard checks enrollment preconditions. It never writes.
type Guard struct {
	facts *course.FactsStore
}

// NewGuard creates a Guard. facts may be nil, in which case facts are read
// from the database on every call.
func NewGuard(facts *course.FactsStore) *Guard {
	return &Guard{facts: facts}
}

// CheckEligibility verifies, in order, that the course exists, is published,
// that studentID is an active student, and that no enrollment exists yet.
func (g *Guard) CheckEligibility(ctx context.Context, db *gorm.DB, courseID, studentID uuid.UUID) (Eligibility, error) {
	crs, err := course.Get(ctx, db, courseID)
	if errors.Is(err, course.ErrCourseNotFound) {
		return Eligibility{}, ErrCourseNotFound
	}
	if err != nil {
		return Eligibility{}, err
	}
	if !crs.Published {
		return Eligibility{}, ErrCourseNotPublished
	}

	student, err := user.Get(ctx, db, studentID)
	if errors.Is(err, user.ErrUserNotFound) {
		return Eligibility{}, ErrStudentNotFound
	}
	if err != nil {
		return Eligibility{}, err
	}
	if student.Role != access.RoleStudent || !student.Active {
		return Eligibility{}, ErrStudentNotFound
	}

	enrolled, err := IsEnrolled(ctx, db, studentID, courseID)
	if err != nil {
		return Eligibility{}, err
	}
	if enrolled {
		return Eligibility{}, ErrAlreadyEnrolled
	}

	// totals feed the new enrollment's aggregate, so they skip the cache
	facts, err := course.ComputeFacts(ctx, db, courseID)
	if err != nil {
		return Eligibility{}, err
	}

	return Eligibility{
		Course:        crs,
		Price:         crs.Price,
		VideoCount:    int(facts[courseID].VideoCount),
		TotalDuration: int(facts[courseID].TotalDuration),
	}, nil
}

// Facts returns derived facts for the given courses, served from the cache
// when available.
func (g *Guard) Facts(ctx context.Context, db *gorm.DB, courseIDs ...uuid.UUID) (map[uuid.UUID]course.Facts, error) {
	if g.facts == nil {
		return course.ComputeFacts(ctx, db, courseIDs...)
	}
	return g.facts.Load(ctx, db, courseIDs...)
}

// Invalidate drops cached facts for the given courses.
func (g *Guard) Invalidate(ctx context.Context, courseIDs ...uuid.UUID) {
	g.facts.Invalidate(ctx, courseIDs...)
}

// IsEnrolled reports whether an enrollment exists for the pair.
func IsEnrolled(ctx context.Context, db *gorm.DB, studentID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("enrollments").
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}
