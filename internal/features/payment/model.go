package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/pkg/pagination"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// Payment records one charge attempt for a course.
type Payment struct {
	types.BaseModel

	StudentID          uuid.UUID           `gorm:"type:uuid;not null;index;column:student_id" json:"studentId"`
	CourseID           uuid.UUID           `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	Amount             types.Money         `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency           types.Currency      `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	ProcessorReference *string             `gorm:"type:varchar(255);index;column:processor_reference" json:"processorReference,omitempty"`
	PaymentMethodID    string              `gorm:"type:varchar(255);not null;default:'';column:payment_method_id" json:"-"`
	Status             types.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason      *string             `gorm:"type:text;column:failure_reason" json:"failureReason,omitempty"`
}

// TableName overrides the default table name.
func (Payment) TableName() string { return "payments" }

// PendingInput carries data for a new pending payment.
type PendingInput struct {
	StudentID       uuid.UUID
	CourseID        uuid.UUID
	Amount          types.Money
	Currency        types.Currency
	PaymentMethodID string
}

// CreatePending inserts a payment awaiting processor confirmation.
func CreatePending(ctx context.Context, db *gorm.DB, input PendingInput) (Payment, error) {
	p := Payment{
		StudentID:       input.StudentID,
		CourseID:        input.CourseID,
		Amount:          input.Amount,
		Currency:        input.Currency,
		PaymentMethodID: input.PaymentMethodID,
		Status:          StatusPending,
	}
	if err := db.WithContext(ctx).Create(&p).Error; err != nil {
		return Payment{}, err
	}
	return p, nil
}

// Get retrieves a payment by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Payment, error) {
	var p Payment
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, ErrPaymentNotFound
		}
		return p, err
	}
	return p, nil
}

// MarkCompleted moves a pending payment to completed with the processor reference.
func MarkCompleted(ctx context.Context, db *gorm.DB, id uuid.UUID, reference string) error {
	return transition(ctx, db, id, []types.PaymentStatus{StatusPending}, map[string]any{
		"status":              StatusCompleted,
		"processor_reference": reference,
		"failure_reason":      nil,
	})
}

// MarkFailed moves a pending payment to failed.
func MarkFailed(ctx context.Context, db *gorm.DB, id uuid.UUID, reason string) error {
	return transition(ctx, db, id, []types.PaymentStatus{StatusPending}, map[string]any{
		"status":         StatusFailed,
		"failure_reason": reason,
	})
}

// MarkNeedsReview flags a payment whose outcome must be reconciled by hand.
// reference may be empty when the processor never returned one.
func MarkNeedsReview(ctx context.Context, db *gorm.DB, id uuid.UUID, reference, reason string) error {
	updates := map[string]any{
		"status":         StatusNeedsReview,
		"failure_reason": reason,
	}
	if reference != "" {
		updates["processor_reference"] = reference
	}
	return transition(ctx, db, id, []types.PaymentStatus{StatusPending, StatusCompleted}, updates)
}

func transition(ctx context.Context, db *gorm.DB, id uuid.UUID, from []types.PaymentStatus, updates map[string]any) error {
	res := db.WithContext(ctx).Model(&Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := Get(ctx, db, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// ListStalePending returns pending payments created before cutoff.
func ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]Payment, error) {
	var payments []Payment
	err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, cutoff).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

// HistoryEntry is a payment as its student sees it.
type HistoryEntry struct {
	ID              uuid.UUID           `json:"id"`
	Amount          types.Money         `json:"amount"`
	Currency        types.Currency      `json:"currency"`
	Status          types.PaymentStatus `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	CourseID        uuid.UUID           `json:"courseId"`
	CourseTitle     string              `json:"courseTitle"`
	CourseThumbnail *string             `gorm:"column:course_thumbnail" json:"courseThumbnail,omitempty"`
	TutorID         *uuid.UUID          `json:"tutorId,omitempty"`
	TutorName       string              `json:"tutorName"`
}

// History lists a student's payments, newest first. Payments for deleted
// courses keep an empty title.
func History(ctx context.Context, db *gorm.DB, studentID uuid.UUID, params pagination.Params) ([]HistoryEntry, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(&Payment{}).Where("student_id = ?", studentID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]HistoryEntry, 0)
	err := db.WithContext(ctx).Table("payments").
		Select(`payments.id, payments.amount, payments.currency, payments.status, payments.created_at,
			payments.course_id, COALESCE(courses.title, '') AS course_title, courses.thumbnail_url AS course_thumbnail,
			courses.tutor_id, COALESCE(users.full_name, '') AS tutor_name`).
		Joins("LEFT JOIN courses ON courses.id = payments.course_id").
		Joins("LEFT JOIN users ON users.id = courses.tutor_id").
		Where("payments.student_id = ?", studentID).
		Order("payments.created_at DESC").
		Scopes(params.Scope).
		Scan(&entries).Error
	return entries, total, err
}

// CourseEarnings totals completed payments for one course.
type CourseEarnings struct {
	CourseID    uuid.UUID   `json:"courseId"`
	Title       string      `json:"title"`
	TotalSales  int64       `json:"totalSales"`
	TotalAmount types.Money `json:"totalAmount"`
}

// Transaction is a completed payment on a tutor's course.
type Transaction struct {
	ID          uuid.UUID   `json:"id"`
	Amount      types.Money `json:"amount"`
	CreatedAt   time.Time   `json:"createdAt"`
	CourseID    uuid.UUID   `json:"courseId"`
	CourseTitle string      `json:"courseTitle"`
	StudentID   uuid.UUID   `json:"studentId"`
	StudentName string      `json:"studentName"`
}

// Earnings summarizes a tutor's completed payments.
type Earnings struct {
	TotalEarnings      types.Money      `json:"totalEarnings"`
	CourseEarnings     []CourseEarnings `json:"courseEarnings"`
	RecentTransactions []Transaction    `json:"recentTransactions"`
}

const recentTransactionLimit = 10

// TutorEarnings totals completed payments across the tutor's courses.
func TutorEarnings(ctx context.Context, db *gorm.DB, tutorID uuid.UUID) (Earnings, error) {
	earnings := Earnings{
		CourseEarnings:     make([]CourseEarnings, 0),
		RecentTransactions: make([]Transaction, 0),
	}
	base := db.WithContext(ctx).Table("payments").
		Joins("JOIN courses ON courses.id = payments.course_id").
		Where("courses.tutor_id = ? AND payments.status = ?", tutorID, StatusCompleted).
		Session(&gorm.Session{})

	var sum struct {
		Total types.Money
	}
	if err := base.Select("COALESCE(SUM(payments.amount), 0) AS total").Scan(&sum).Error; err != nil {
		return Earnings{}, err
	}
	earnings.TotalEarnings = sum.Total

	if err := base.
		Select("courses.id AS course_id, courses.title, COUNT(payments.id) AS total_sales, COALESCE(SUM(payments.amount), 0) AS total_amount").
		Group("courses.id, courses.title").
		Order("total_amount DESC").
		Scan(&earnings.CourseEarnings).Error; err != nil {
		return Earnings{}, err
	}

	if err := base.
		Select(`payments.id, payments.amount, payments.created_at, courses.id AS course_id, courses.title AS course_title,
			payments.student_id, COALESCE(users.full_name, '') AS student_name`).
		Joins("LEFT JOIN users ON users.id = payments.student_id").
		Order("payments.created_at DESC").
		Limit(recentTransactionLimit).
		Scan(&earnings.RecentTransactions).Error; err != nil {
		return Earnings{}, err
	}

	return earnings, nil
}
