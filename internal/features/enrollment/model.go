package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/catalog"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/internal/features/progress"
	"github.com/iamabdullah-dev/EdTech/pkg/metrics"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// Enrollment links a student to a course. A student holds at most one
// enrollment per course.
type Enrollment struct {
	types.BaseModel

	StudentID          uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_student_course;column:student_id" json:"studentId"`
	CourseID           uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_student_course;index;column:course_id" json:"courseId"`
	PaymentID          *uuid.UUID             `gorm:"type:uuid;uniqueIndex;column:payment_id" json:"paymentId,omitempty"`
	Status             types.EnrollmentStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	ProgressPercentage int                    `gorm:"not null;default:0;column:progress_percentage" json:"progressPercentage"`
}

// TableName overrides the default table name.
func (Enrollment) TableName() string { return "enrollments" }

// EnrolledAt is the enrollment timestamp.
func (e Enrollment) EnrolledAt() time.Time { return e.CreatedAt }

// Ledger creates enrollments after the catalog guard and payment checks.
type Ledger struct {
	guard *catalog.Guard
}

// NewLedger creates a Ledger.
func NewLedger(guard *catalog.Guard) *Ledger {
	return &Ledger{guard: guard}
}

// Enroll creates the enrollment and its zero-state progress in one
// transaction. Priced courses need paymentID to name a completed payment by
// the same student, for the same course and the exact price.
func (l *Ledger) Enroll(ctx context.Context, db *gorm.DB, studentID, courseID uuid.UUID, paymentID *uuid.UUID) (Enrollment, error) {
	var enrollment Enrollment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		enrollment, err = l.EnrollTx(ctx, tx, studentID, courseID, paymentID)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	l.guard.Invalidate(ctx, courseID)
	return enrollment, nil
}

// EnrollTx is Enroll inside a caller-owned transaction.
func (l *Ledger) EnrollTx(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID, paymentID *uuid.UUID) (Enrollment, error) {
	eligibility, err := l.guard.CheckEligibility(ctx, tx, courseID, studentID)
	if err != nil {
		metrics.RecordEnrollment(outcome(err))
		return Enrollment{}, err
	}

	if !eligibility.Free() {
		if err := verifyPayment(ctx, tx, paymentID, studentID, eligibility.Course); err != nil {
			metrics.RecordEnrollment(outcome(err))
			return Enrollment{}, err
		}
	} else {
		paymentID = nil
	}

	enrollment := Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		PaymentID: paymentID,
		Status:    types.EnrollmentStatusActive,
	}
	if err := tx.WithContext(ctx).Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = catalog.ErrAlreadyEnrolled
		}
		metrics.RecordEnrollment(outcome(err))
		return Enrollment{}, err
	}

	if _, err := progress.Initialize(ctx, tx, enrollment.ID, eligibility.VideoCount); err != nil {
		metrics.RecordEnrollment(outcome(err))
		return Enrollment{}, fmt.Errorf("initialize progress: %w", err)
	}

	metrics.RecordEnrollment("created")
	return enrollment, nil
}

func verifyPayment(ctx context.Context, tx *gorm.DB, paymentID *uuid.UUID, studentID uuid.UUID, crs course.Course) error {
	if paymentID == nil {
		return ErrPaymentRequired
	}

	p, err := payment.Get(ctx, tx, *paymentID)
	if errors.Is(err, payment.ErrPaymentNotFound) {
		return ErrPaymentRequired
	}
	if err != nil {
		return err
	}
	if p.Status != payment.StatusCompleted ||
		p.StudentID != studentID ||
		p.CourseID != crs.ID ||
		!p.Amount.Equal(crs.Price) {
		return ErrPaymentRequired
	}

	var linked int64
	if err := tx.WithContext(ctx).Model(&Enrollment{}).Where("payment_id = ?", p.ID).Count(&linked).Error; err != nil {
		return err
	}
	if linked > 0 {
		return ErrPaymentRequired
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, catalog.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrPaymentRequired):
		return "payment_required"
	case errors.Is(err, catalog.ErrCourseNotFound),
		errors.Is(err, catalog.ErrCourseNotPublished),
		errors.Is(err, catalog.ErrStudentNotFound):
		return "ineligible"
	default:
		return "error"
	}
}
