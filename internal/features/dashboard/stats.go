// Package dashboard serves tutor statistics.
package dashboard

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

const recentEnrollmentLimit = 5

// RecentEnrollment is one of the latest enrollments on a tutor's courses.
type RecentEnrollment struct {
	ID                 uuid.UUID `json:"id"`
	CourseID           uuid.UUID `json:"courseId"`
	CourseTitle        string    `json:"courseTitle"`
	StudentID          uuid.UUID `json:"studentId"`
	StudentName        string    `json:"studentName"`
	ProgressPercentage int       `json:"progressPercentage"`
	EnrolledAt         time.Time `json:"enrolledAt"`
}

// TutorStats summarizes a tutor's courses.
type TutorStats struct {
	TotalCourses         int64              `json:"totalCourses"`
	PublishedCourses     int64              `json:"publishedCourses"`
	TotalStudents        int64              `json:"totalStudents"`
	TotalEnrollments     int64              `json:"totalEnrollments"`
	CompletedEnrollments int64              `json:"completedEnrollments"`
	AverageCompletion    float64            `json:"averageCompletion"`
	TotalEarnings        types.Money        `json:"totalEarnings"`
	RecentEnrollments    []RecentEnrollment `json:"recentEnrollments"`
}

// LoadTutorStats computes dashboard figures for tutorID.
func LoadTutorStats(ctx context.Context, db *gorm.DB, tutorID uuid.UUID) (TutorStats, error) {
	stats := TutorStats{RecentEnrollments: make([]RecentEnrollment, 0)}
	db = db.WithContext(ctx)

	courses := db.Table("courses").Where("tutor_id = ?", tutorID).Session(&gorm.Session{})
	if err := courses.Count(&stats.TotalCourses).Error; err != nil {
		return TutorStats{}, err
	}
	if err := courses.Where("is_published = ?", true).Count(&stats.PublishedCourses).Error; err != nil {
		return TutorStats{}, err
	}

	enrollments := db.Table("enrollments").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.tutor_id = ?", tutorID).
		Session(&gorm.Session{})

	var totals struct {
		Enrollments int64
		Students    int64
		Completed   int64
		Average     float64
	}
	if err := enrollments.
		Select(`COUNT(enrollments.id) AS enrollments,
			COUNT(DISTINCT enrollments.student_id) AS students,
			COUNT(course_progress.completed_at) AS completed,
			COALESCE(AVG(enrollments.progress_percentage), 0) AS average`).
		Joins("LEFT JOIN course_progress ON course_progress.enrollment_id = enrollments.id").
		Scan(&totals).Error; err != nil {
		return TutorStats{}, err
	}
	stats.TotalEnrollments = totals.Enrollments
	stats.TotalStudents = totals.Students
	stats.CompletedEnrollments = totals.Completed
	stats.AverageCompletion = math.Round(totals.Average*100) / 100

	if err := enrollments.
		Select(`enrollments.id, enrollments.course_id, courses.title AS course_title, enrollments.student_id,
			COALESCE(users.full_name, '') AS student_name, enrollments.progress_percentage,
			enrollments.created_at AS enrolled_at`).
		Joins("LEFT JOIN users ON users.id = enrollments.student_id").
		Order("enrollments.created_at DESC").
		Limit(recentEnrollmentLimit).
		Scan(&stats.RecentEnrollments).Error; err != nil {
		return TutorStats{}, err
	}

	earnings, err := payment.TutorEarnings(ctx, db, tutorID)
	if err != nil {
		return TutorStats{}, err
	}
	stats.TotalEarnings = earnings.TotalEarnings

	return stats, nil
}
