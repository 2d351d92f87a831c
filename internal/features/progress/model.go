package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iamabdullah-dev/EdTech/pkg/database"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// CourseProgress is the per-enrollment aggregate. CompletedAt is set the
// first time the percentage reaches 100 and is never cleared.
type CourseProgress struct {
	types.BaseModel

	EnrollmentID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:enrollment_id" json:"enrollmentId"`
	VideosCompleted    int        `gorm:"not null;default:0;column:videos_completed" json:"videosCompleted"`
	TotalVideos        int        `gorm:"not null;default:0;column:total_videos" json:"totalVideos"`
	ProgressPercentage int        `gorm:"not null;default:0;column:progress_percentage" json:"progressPercentage"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completedAt"`
}

// TableName overrides the default table name.
func (CourseProgress) TableName() string { return "course_progress" }

// VideoProgress is one student's state for one video of an enrollment.
type VideoProgress struct {
	types.BaseModel

	EnrollmentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_video_progress_enrollment_video;column:enrollment_id" json:"enrollmentId"`
	VideoID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_video_progress_enrollment_video;index;column:video_id" json:"videoId"`
	LastPosition int        `gorm:"not null;default:0;column:last_position" json:"lastPosition"`
	IsCompleted  bool       `gorm:"not null;default:false;column:is_completed" json:"isCompleted"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completedAt"`
}

// TableName overrides the default table name.
func (VideoProgress) TableName() string { return "video_progress" }

// Patch is a progress report. Nil fields are left untouched.
type Patch struct {
	IsCompleted  *bool
	LastPosition *int
}

// Assignments validates the patch and returns the column updates it implies
// for current. Completion is sticky: reporting false never clears a
// completed video.
func (p Patch) Assignments(current VideoProgress, now time.Time) (map[string]any, error) {
	updates := make(map[string]any)

	if p.LastPosition != nil {
		if *p.LastPosition < 0 {
			return nil, ErrInvalidPosition
		}
		if *p.LastPosition != current.LastPosition {
			updates["last_position"] = *p.LastPosition
		}
	}
	if p.IsCompleted != nil && *p.IsCompleted && !current.IsCompleted {
		updates["is_completed"] = true
		updates["completed_at"] = now
	}

	return updates, nil
}

// Completes reports whether the patch marks the video completed.
func (p Patch) Completes() bool {
	return p.IsCompleted != nil && *p.IsCompleted
}

// Percentage is round(100 * completed / total), half away from zero, and 0
// when the course has no videos.
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return (200*completed + total) / (2 * total)
}

// EnrollmentRef identifies the owner and course of an enrollment.
type EnrollmentRef struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	CourseID  uuid.UUID
}

// LoadEnrollment reads the enrollment's owner and course.
func LoadEnrollment(ctx context.Context, db *gorm.DB, enrollmentID uuid.UUID) (EnrollmentRef, error) {
	var ref EnrollmentRef
	err := db.WithContext(ctx).Table("enrollments").
		Select("id", "student_id", "course_id").
		Where("id = ?", enrollmentID).
		Take(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ref, ErrEnrollmentNotFound
	}
	return ref, err
}

// Tracker records video progress and keeps course aggregates current.
type Tracker struct {
	now func() time.Time
}

// NewTracker creates a Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Report applies patch to the enrollment's record for videoID, creating the
// record first when missing. Aggregates are recomputed in the same
// transaction when the report marks the video completed.
func (t *Tracker) Report(ctx context.Context, db *gorm.DB, enrollmentID, videoID uuid.UUID, patch Patch) (VideoProgress, error) {
	var result VideoProgress

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := LoadEnrollment(ctx, tx, enrollmentID)
		if err != nil {
			return err
		}

		var videoCourse []uuid.UUID
		if err := tx.Table("videos").Where("id = ?", videoID).Limit(1).Pluck("course_id", &videoCourse).Error; err != nil {
			return err
		}
		if len(videoCourse) == 0 || videoCourse[0] != ref.CourseID {
			return ErrVideoNotFound
		}

		row := VideoProgress{EnrollmentID: enrollmentID, VideoID: videoID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}

		current, err := findVideoProgress(tx, enrollmentID, videoID)
		if err != nil {
			return err
		}

		updates, err := patch.Assignments(current, t.now())
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&VideoProgress{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
				return err
			}
			if current, err = findVideoProgress(tx, enrollmentID, videoID); err != nil {
				return err
			}
		}

		if patch.Completes() {
			if _, err := t.Recompute(ctx, tx, enrollmentID, ref.CourseID); err != nil {
				return err
			}
		}

		result = current
		return nil
	})

	return result, err
}

// Recompute refreshes the enrollment's aggregate from live counts. It must
// run inside a transaction; on postgres the aggregate row is locked first so
// concurrent reports for one enrollment serialize.
func (t *Tracker) Recompute(ctx context.Context, tx *gorm.DB, enrollmentID, courseID uuid.UUID) (CourseProgress, error) {
	tx = tx.WithContext(ctx)

	cp, err := lockCourseProgress(tx, enrollmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// enrollments created before aggregates existed
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&CourseProgress{EnrollmentID: enrollmentID}).Error; err != nil {
			return CourseProgress{}, err
		}
		cp, err = lockCourseProgress(tx, enrollmentID)
	}
	if err != nil {
		return CourseProgress{}, err
	}

	var completed, total int64
	if err := tx.Raw(
		`SELECT COUNT(*) FROM video_progress
		 JOIN videos ON videos.id = video_progress.video_id
		 WHERE video_progress.enrollment_id = ? AND video_progress.is_completed = ? AND videos.course_id = ?`,
		enrollmentID, true, courseID,
	).Scan(&completed).Error; err != nil {
		return CourseProgress{}, err
	}
	if err := tx.Raw("SELECT COUNT(*) FROM videos WHERE course_id = ?", courseID).Scan(&total).Error; err != nil {
		return CourseProgress{}, err
	}

	pct := Percentage(int(completed), int(total))
	updates := map[string]any{
		"videos_completed":    int(completed),
		"total_videos":        int(total),
		"progress_percentage": pct,
	}
	if pct == 100 && cp.CompletedAt == nil {
		updates["completed_at"] = t.now()
	}

	if err := tx.Model(&CourseProgress{}).Where("id = ?", cp.ID).Updates(updates).Error; err != nil {
		return CourseProgress{}, err
	}
	if err := tx.Table("enrollments").Where("id = ?", enrollmentID).
		Update("progress_percentage", pct).Error; err != nil {
		return CourseProgress{}, err
	}

	return Get(ctx, tx, enrollmentID)
}

// Initialize writes the zero-state aggregate for a new enrollment.
func Initialize(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, totalVideos int) (CourseProgress, error) {
	cp := CourseProgress{EnrollmentID: enrollmentID, TotalVideos: totalVideos}
	if err := tx.WithContext(ctx).Create(&cp).Error; err != nil {
		return CourseProgress{}, err
	}
	return cp, nil
}

// Get returns the enrollment's aggregate.
func Get(ctx context.Context, db *gorm.DB, enrollmentID uuid.UUID) (CourseProgress, error) {
	var cp CourseProgress
	err := db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).Take(&cp).Error
	return cp, err
}

// ListVideoProgress returns every per-video record of an enrollment keyed by video.
func ListVideoProgress(ctx context.Context, db *gorm.DB, enrollmentID uuid.UUID) (map[uuid.UUID]VideoProgress, error) {
	var rows []VideoProgress
	if err := db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byVideo := make(map[uuid.UUID]VideoProgress, len(rows))
	for _, r := range rows {
		byVideo[r.VideoID] = r
	}
	return byVideo, nil
}

func findVideoProgress(tx *gorm.DB, enrollmentID, videoID uuid.UUID) (VideoProgress, error) {
	var vp VideoProgress
	err := tx.Where("enrollment_id = ? AND video_id = ?", enrollmentID, videoID).Take(&vp).Error
	return vp, err
}

func lockCourseProgress(tx *gorm.DB, enrollmentID uuid.UUID) (CourseProgress, error) {
	query := tx
	if database.IsPostgres(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var cp CourseProgress
	err := query.Where("enrollment_id = ?", enrollmentID).Take(&cp).Error
	return cp, err
}
