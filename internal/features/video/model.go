package video

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// Video is one lesson of a course. Duration is in seconds.
type Video struct {
	types.BaseModel

	CourseID      uuid.UUID `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	Title         string    `gorm:"type:varchar(200);not null" json:"title"`
	Description   string    `gorm:"type:text;not null;default:''" json:"description"`
	VideoURL      string    `gorm:"type:text;not null;column:video_url" json:"videoUrl"`
	SequenceOrder int       `gorm:"not null;default:0;column:sequence_order" json:"sequenceOrder"`
	Duration      int       `gorm:"not null;check:chk_videos_duration_positive,duration > 0" json:"duration"`
}

// TableName overrides the default table name.
func (Video) TableName() string { return "videos" }

// CreateInput carries data for a new video. A nil SequenceOrder appends the
// video after the course's last one.
type CreateInput struct {
	CourseID      uuid.UUID
	Title         string
	Description   string
	VideoURL      string
	SequenceOrder *int
	Duration      int
}

// Patch is a partial video update.
type Patch struct {
	Title         *string
	Description   *string
	VideoURL      *string
	SequenceOrder *int
	Duration      *int
}

// Assignments validates the patch and returns its column updates.
func (p Patch) Assignments() (map[string]any, error) {
	updates := make(map[string]any)

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		updates["title"] = title
	}
	if p.Description != nil {
		updates["description"] = strings.TrimSpace(*p.Description)
	}
	if p.VideoURL != nil {
		url := strings.TrimSpace(*p.VideoURL)
		if url == "" {
			return nil, ErrURLRequired
		}
		updates["video_url"] = url
	}
	if p.SequenceOrder != nil {
		if *p.SequenceOrder < 0 {
			return nil, ErrInvalidOrder
		}
		updates["sequence_order"] = *p.SequenceOrder
	}
	if p.Duration != nil {
		if *p.Duration <= 0 {
			return nil, ErrInvalidDuration
		}
		updates["duration"] = *p.Duration
	}

	return updates, nil
}

// Create inserts a video into a course.
func Create(ctx context.Context, db *gorm.DB, input CreateInput) (Video, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Video{}, ErrTitleRequired
	}
	url := strings.TrimSpace(input.VideoURL)
	if url == "" {
		return Video{}, ErrURLRequired
	}
	if input.Duration <= 0 {
		return Video{}, ErrInvalidDuration
	}

	v := Video{
		CourseID:    input.CourseID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		VideoURL:    url,
		Duration:    input.Duration,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.SequenceOrder != nil {
			if *input.SequenceOrder < 0 {
				return ErrInvalidOrder
			}
			v.SequenceOrder = *input.SequenceOrder
		} else {
			var last int
			if err := tx.Model(&Video{}).
				Where("course_id = ?", input.CourseID).
				Select("COALESCE(MAX(sequence_order), 0)").
				Scan(&last).Error; err != nil {
				return err
			}
			v.SequenceOrder = last + 1
		}
		return tx.Create(&v).Error
	})
	if err != nil {
		return Video{}, err
	}
	return v, nil
}

// Get retrieves a video by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Video, error) {
	var v Video
	if err := db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return v, ErrVideoNotFound
		}
		return v, err
	}
	return v, nil
}

// ListByCourse returns the course's videos in display order.
func ListByCourse(ctx context.Context, db *gorm.DB, courseID uuid.UUID) ([]Video, error) {
	videos := make([]Video, 0)
	err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order(course.VideoOrder).
		Find(&videos).Error
	return videos, err
}

// Update applies patch and returns the stored video.
func Update(ctx context.Context, db *gorm.DB, id uuid.UUID, patch Patch) (Video, error) {
	updates, err := patch.Assignments()
	if err != nil {
		return Video{}, err
	}

	v, err := Get(ctx, db, id)
	if err != nil {
		return Video{}, err
	}
	if len(updates) == 0 {
		return v, nil
	}

	if err := db.WithContext(ctx).Model(&v).Updates(updates).Error; err != nil {
		return Video{}, err
	}
	return Get(ctx, db, id)
}

// Delete removes a video and the per-video progress recorded against it.
// Course aggregates pick up the new total at their next recomputation.
func Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM video_progress WHERE video_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&Video{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVideoNotFound
		}
		return nil
	})
}
