package course

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoOrder is the display order of a course's videos.
const VideoOrder = "sequence_order ASC, created_at ASC, id ASC"

// Detail is a course with its tutor, derived facts and ordered videos.
type Detail struct {
	Course
	TutorName string `json:"tutorName"`
	Facts
	Videos []VideoSummary `json:"videos"`
}

// VideoSummary is the public view of a video inside a course detail.
type VideoSummary struct {
	ID            uuid.UUID `json:"id"`
	CourseID      uuid.UUID `json:"courseId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Duration      int       `json:"duration"`
	SequenceOrder int       `json:"sequenceOrder"`
}

func (VideoSummary) TableName() string {
	return "videos"
}

// LoadDetail assembles the detail view for course.
func LoadDetail(ctx context.Context, db *gorm.DB, course Course, facts Facts) (Detail, error) {
	detail := Detail{Course: course, Facts: facts, Videos: make([]VideoSummary, 0)}

	if err := db.WithContext(ctx).
		Select("id", "course_id", "title", "description", "duration", "sequence_order").
		Where("course_id = ?", course.ID).
		Order(VideoOrder).
		Find(&detail.Videos).Error; err != nil {
		return Detail{}, err
	}

	var names []string
	if err := db.WithContext(ctx).Table("users").
		Where("id = ?", course.TutorID).
		Limit(1).
		Pluck("full_name", &names).Error; err != nil {
		return Detail{}, err
	}
	if len(names) > 0 {
		detail.TutorName = names[0]
	}
	return detail, nil
}
