package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/progress"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// StudentView is an enrollment as listed for its student.
type StudentView struct {
	ID                 uuid.UUID              `json:"id"`
	CourseID           uuid.UUID              `json:"courseId"`
	Status             types.EnrollmentStatus `json:"status"`
	EnrolledAt         time.Time              `json:"enrolledAt"`
	CourseTitle        string                 `json:"courseTitle"`
	CourseDescription  string                 `json:"courseDescription"`
	CourseThumbnail    *string                `json:"courseThumbnail,omitempty"`
	TutorID            uuid.UUID              `json:"tutorId"`
	TutorName          string                 `json:"tutorName"`
	VideosCompleted    int                    `json:"videosCompleted"`
	TotalVideos        int                    `json:"totalVideos"`
	ProgressPercentage int                    `json:"progressPercentage"`
	CompletedAt        *time.Time             `json:"completedAt"`
}

// CourseView is an enrollment as listed for the course's tutor.
type CourseView struct {
	ID                 uuid.UUID  `json:"id"`
	StudentID          uuid.UUID  `json:"studentId"`
	StudentName        string     `json:"studentName"`
	StudentEmail       string     `json:"studentEmail"`
	EnrolledAt         time.Time  `json:"enrolledAt"`
	VideosCompleted    int        `json:"videosCompleted"`
	TotalVideos        int        `json:"totalVideos"`
	ProgressPercentage int        `json:"progressPercentage"`
	CompletedAt        *time.Time `json:"completedAt"`
}

const progressColumns = `COALESCE(course_progress.videos_completed, 0) AS videos_completed,
	COALESCE(course_progress.total_videos, 0) AS total_videos,
	COALESCE(course_progress.progress_percentage, enrollments.progress_percentage) AS progress_percentage,
	course_progress.completed_at`

func studentViewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("enrollments").
		Select(`enrollments.id, enrollments.course_id, enrollments.status, enrollments.created_at AS enrolled_at,
			courses.title AS course_title, courses.description AS course_description,
			courses.thumbnail_url AS course_thumbnail, courses.tutor_id,
			COALESCE(users.full_name, '') AS tutor_name, ` + progressColumns).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Joins("LEFT JOIN users ON users.id = courses.tutor_id").
		Joins("LEFT JOIN course_progress ON course_progress.enrollment_id = enrollments.id")
}

// ListForStudent returns the student's enrollments, newest first.
func ListForStudent(ctx context.Context, db *gorm.DB, studentID uuid.UUID) ([]StudentView, error) {
	views := make([]StudentView, 0)
	err := studentViewQuery(db.WithContext(ctx)).
		Where("enrollments.student_id = ?", studentID).
		Order("enrollments.created_at DESC").
		Scan(&views).Error
	return views, err
}

// ListForCourse returns the course roster, newest first.
func ListForCourse(ctx context.Context, db *gorm.DB, courseID uuid.UUID) ([]CourseView, error) {
	views := make([]CourseView, 0)
	err := db.WithContext(ctx).Table("enrollments").
		Select(`enrollments.id, enrollments.student_id, enrollments.created_at AS enrolled_at,
			COALESCE(users.full_name, '') AS student_name, COALESCE(users.email, '') AS student_email, ` + progressColumns).
		Joins("LEFT JOIN users ON users.id = enrollments.student_id").
		Joins("LEFT JOIN course_progress ON course_progress.enrollment_id = enrollments.id").
		Where("enrollments.course_id = ?", courseID).
		Order("enrollments.created_at DESC").
		Scan(&views).Error
	return views, err
}

// Status answers whether a student is enrolled in a course.
type Status struct {
	IsEnrolled bool        `json:"isEnrolled"`
	Enrollment *Enrollment `json:"enrollment"`
}

// CheckStatus looks up the pair's enrollment. It never writes.
func CheckStatus(ctx context.Context, db *gorm.DB, studentID, courseID uuid.UUID) (Status, error) {
	var e Enrollment
	err := db.WithContext(ctx).Where("student_id = ? AND course_id = ?", studentID, courseID).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{IsEnrolled: true, Enrollment: &e}, nil
}

// VideoState is a course video merged with the enrollment's progress on it.
type VideoState struct {
	course.VideoSummary
	LastPosition int        `json:"lastPosition"`
	IsCompleted  bool       `json:"isCompleted"`
	CompletedAt  *time.Time `json:"completedAt"`
}

// Detail is one enrollment with its course and per-video progress.
type Detail struct {
	StudentView
	StudentID uuid.UUID    `json:"studentId"`
	Videos    []VideoState `json:"videos"`
}

// Get returns the enrollment detail. Videos without a progress record show
// position 0 and not completed.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Detail, error) {
	var row struct {
		StudentView
		StudentID uuid.UUID
	}
	res := studentViewQuery(db.WithContext(ctx)).
		Select(`enrollments.id, enrollments.course_id, enrollments.status, enrollments.created_at AS enrolled_at,
			enrollments.student_id, courses.title AS course_title, courses.description AS course_description,
			courses.thumbnail_url AS course_thumbnail, courses.tutor_id,
			COALESCE(users.full_name, '') AS tutor_name, ` + progressColumns).
		Where("enrollments.id = ?", id).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return Detail{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Detail{}, ErrEnrollmentNotFound
	}

	var videos []course.VideoSummary
	if err := db.WithContext(ctx).
		Where("course_id = ?", row.CourseID).
		Order(course.VideoOrder).
		Find(&videos).Error; err != nil {
		return Detail{}, err
	}

	states, err := progress.ListVideoProgress(ctx, db, id)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{StudentView: row.StudentView, StudentID: row.StudentID, Videos: make([]VideoState, len(videos))}
	for i, v := range videos {
		vs := VideoState{VideoSummary: v}
		if st, ok := states[v.ID]; ok {
			vs.LastPosition = st.LastPosition
			vs.IsCompleted = st.IsCompleted
			vs.CompletedAt = st.CompletedAt
		}
		detail.Videos[i] = vs
	}
	return detail, nil
}
