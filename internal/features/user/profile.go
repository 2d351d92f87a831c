package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
)

// PublicProfile is what other users may see about an account.
type PublicProfile struct {
	ID       uuid.UUID   `json:"id"`
	FullName string      `json:"fullName"`
	Bio      string      `json:"bio"`
	Role     access.Role `json:"role"`
}

// Public strips private fields from u.
func (u User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, FullName: u.FullName, Bio: u.Bio, Role: u.Role}
}

// TutorProfile is a tutor's public page: who they are and what they teach.
// Only published courses are listed and counted.
type TutorProfile struct {
	PublicProfile
	JoinedAt     time.Time            `json:"joinedAt"`
	CourseCount  int                  `json:"courseCount"`
	StudentCount int64                `json:"studentCount"`
	Courses      []course.TutorCourse `json:"courses"`
}

// LoadTutorProfile builds the public page of tutorID. Accounts that are not
// active tutors are reported as ErrTutorNotFound.
func LoadTutorProfile(ctx context.Context, db *gorm.DB, tutorID uuid.UUID) (TutorProfile, error) {
	usr, err := Get(ctx, db, tutorID)
	if errors.Is(err, ErrUserNotFound) || (err == nil && (usr.Role != access.RoleTutor || !usr.Active)) {
		return TutorProfile{}, ErrTutorNotFound
	}
	if err != nil {
		return TutorProfile{}, err
	}

	courses, err := course.ListByTutor(ctx, db, tutorID, false)
	if err != nil {
		return TutorProfile{}, err
	}

	var students int64
	err = db.WithContext(ctx).Table("enrollments").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.tutor_id = ? AND courses.is_published = ?", tutorID, true).
		Distinct("enrollments.student_id").
		Count(&students).Error
	if err != nil {
		return TutorProfile{}, err
	}

	return TutorProfile{
		PublicProfile: usr.Public(),
		JoinedAt:      usr.CreatedAt,
		CourseCount:   len(courses),
		StudentCount:  students,
		Courses:       courses,
	}, nil
}
