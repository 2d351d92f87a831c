package course

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/pkg/pagination"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// Course is a tutor-owned collection of videos. New courses start as drafts.
type Course struct {
	types.BaseModel

	TutorID      uuid.UUID   `gorm:"type:uuid;not null;index;column:tutor_id" json:"tutorId"`
	Title        string      `gorm:"type:varchar(200);not null" json:"title"`
	Description  string      `gorm:"type:text;not null;default:''" json:"description"`
	ThumbnailURL *string     `gorm:"type:text;column:thumbnail_url" json:"thumbnailUrl,omitempty"`
	Price        types.Money `gorm:"type:numeric(10,2);not null;default:0;check:chk_courses_price_non_negative,price >= 0" json:"price"`
	Published    bool        `gorm:"not null;default:false;column:is_published" json:"isPublished"`
}

// TableName overrides the default table name.
func (Course) TableName() string { return "courses" }

// IsFree reports whether enrolling requires no payment.
func (c Course) IsFree() bool { return !c.Price.GreaterThan(types.Money{}) }

// CreateInput carries data for creating a new course.
type CreateInput struct {
	TutorID      uuid.UUID
	Title        string
	Description  string
	ThumbnailURL *string
	Price        types.Money
}

// Patch is a partial course update. Nil fields are left untouched.
type Patch struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Price        *types.Money
	Published    *bool
}

// Assignments validates the patch and returns the column updates it implies.
// An empty thumbnail clears the stored one.
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
	if p.ThumbnailURL != nil {
		if url := strings.TrimSpace(*p.ThumbnailURL); url == "" {
			updates["thumbnail_url"] = nil
		} else {
			updates["thumbnail_url"] = url
		}
	}
	if p.Price != nil {
		if err := checkPrice(*p.Price); err != nil {
			return nil, err
		}
		updates["price"] = *p.Price
	}
	if p.Published != nil {
		updates["is_published"] = *p.Published
	}

	return updates, nil
}

// maxPrice is the largest value numeric(10,2) holds.
var maxPrice = decimal.New(9999999999, -2)

func checkPrice(price types.Money) error {
	d := price.Decimal()
	switch {
	case d.IsNegative():
		return ErrNegativePrice
	case !d.Equal(d.Round(2)):
		return ErrPriceTooPrecise
	case d.GreaterThan(maxPrice):
		return ErrPriceTooLarge
	}
	return nil
}

// Create inserts a draft course.
func Create(ctx context.Context, db *gorm.DB, input CreateInput) (Course, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Course{}, ErrTitleRequired
	}
	if err := checkPrice(input.Price); err != nil {
		return Course{}, err
	}

	course := Course{
		TutorID:      input.TutorID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		ThumbnailURL: input.ThumbnailURL,
		Price:        input.Price,
	}
	if err := db.WithContext(ctx).Create(&course).Error; err != nil {
		return Course{}, err
	}
	return course, nil
}

// Get retrieves a course by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Course, error) {
	var course Course
	if err := db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return course, ErrCourseNotFound
		}
		return course, err
	}
	return course, nil
}

// Listing is a catalog row joined with its tutor's name.
type Listing struct {
	Course
	TutorName string `gorm:"column:tutor_name" json:"tutorName"`
}

// ListPublished returns published courses, newest first.
func ListPublished(ctx context.Context, db *gorm.DB, params pagination.Params) ([]Listing, int64, error) {
	query := db.WithContext(ctx).Model(&Course{}).
		Where("courses.is_published = ?", true).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listings := make([]Listing, 0)
	err := query.
		Select("courses.*, users.full_name AS tutor_name").
		Joins("LEFT JOIN users ON users.id = courses.tutor_id").
		Order("courses.created_at DESC").
		Scopes(params.Scope).
		Scan(&listings).Error
	return listings, total, err
}

// TutorCourse is a course as its owner sees it on their dashboard.
type TutorCourse struct {
	Course
	EnrollmentCount int64 `gorm:"column:enrollment_count" json:"enrollmentCount"`
	VideoCount      int64 `gorm:"column:video_count" json:"videoCount"`
}

// ListByTutor returns the courses owned by tutorID, newest first. Drafts are
// left out unless includeDrafts is set.
func ListByTutor(ctx context.Context, db *gorm.DB, tutorID uuid.UUID, includeDrafts bool) ([]TutorCourse, error) {
	query := db.WithContext(ctx).Model(&Course{}).
		Select(`courses.*,
			(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id) AS enrollment_count,
			(SELECT COUNT(*) FROM videos WHERE videos.course_id = courses.id) AS video_count`).
		Where("courses.tutor_id = ?", tutorID)
	if !includeDrafts {
		query = query.Where("courses.is_published = ?", true)
	}

	courses := make([]TutorCourse, 0)
	err := query.Order("courses.created_at DESC").Scan(&courses).Error
	return courses, err
}

// Update applies patch to the course and returns the stored result.
func Update(ctx context.Context, db *gorm.DB, id uuid.UUID, patch Patch) (Course, error) {
	updates, err := patch.Assignments()
	if err != nil {
		return Course{}, err
	}

	course, err := Get(ctx, db, id)
	if err != nil {
		return Course{}, err
	}
	if len(updates) == 0 {
		return course, nil
	}

	if err := db.WithContext(ctx).Model(&course).Updates(updates).Error; err != nil {
		return Course{}, err
	}
	return Get(ctx, db, id)
}

// Delete removes the course with its videos, enrollments and progress.
// Payments are kept as the financial record.
func Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		statements := []string{
			"DELETE FROM video_progress WHERE enrollment_id IN (SELECT id FROM enrollments WHERE course_id = ?)",
			"DELETE FROM course_progress WHERE enrollment_id IN (SELECT id FROM enrollments WHERE course_id = ?)",
			"DELETE FROM enrollments WHERE course_id = ?",
			"DELETE FROM videos WHERE course_id = ?",
		}
		for _, stmt := range statements {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}

		res := tx.Exec("DELETE FROM courses WHERE id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCourseNotFound
		}
		return nil
	})
}
