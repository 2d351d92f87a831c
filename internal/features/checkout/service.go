// Package checkout charges a student for a course and enrolls them once the
// processor confirms the payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/catalog"
	"github.com/iamabdullah-dev/EdTech/internal/features/enrollment"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/pkg/metrics"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// Result is a finished checkout. Payment is nil for free courses.
type Result struct {
	Payment    *payment.Payment
	Enrollment enrollment.Enrollment
}

// Service runs the payment-then-enroll workflow.
type Service struct {
	db        *gorm.DB
	guard     *catalog.Guard
	ledger    *enrollment.Ledger
	processor payment.Processor
	currency  types.Currency
	logger    *slog.Logger
}

// NewService creates a checkout service charging in currency.
func NewService(db *gorm.DB, guard *catalog.Guard, ledger *enrollment.Ledger, processor payment.Processor, currency string, logger *slog.Logger) *Service {
	cur := types.Currency(strings.ToUpper(strings.TrimSpace(currency)))
	if cur == "" {
		cur = types.CurrencyUSD
	}
	return &Service{
		db:        db,
		guard:     guard,
		ledger:    ledger,
		processor: processor,
		currency:  cur,
		logger:    logger,
	}
}

// Process enrolls actor in courseID, charging paymentMethodID first when the
// course has a price. Nothing is written when the student is not eligible.
func (s *Service) Process(ctx context.Context, actor access.Identity, courseID uuid.UUID, paymentMethodID string) (Result, error) {
	studentID := actor.UserID

	eligibility, err := s.guard.CheckEligibility(ctx, s.db, courseID, studentID)
	if err != nil {
		return Result{}, err
	}

	if eligibility.Free() {
		e, err := s.ledger.Enroll(ctx, s.db, studentID, courseID, nil)
		if err != nil {
			return Result{}, err
		}
		return Result{Enrollment: e}, nil
	}

	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return Result{}, ErrPaymentMethodRequired
	}

	pending, err := payment.CreatePending(ctx, s.db, payment.PendingInput{
		StudentID:       studentID,
		CourseID:        courseID,
		Amount:          eligibility.Price,
		Currency:        s.currency,
		PaymentMethodID: paymentMethodID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create pending payment: %w", err)
	}
	metrics.RecordPayment(string(payment.StatusPending))

	conf, err := s.processor.Confirm(ctx, payment.Charge{
		Amount:          eligibility.Price,
		Currency:        s.currency,
		PaymentMethodID: paymentMethodID,
		Description:     "Enrollment: " + eligibility.Course.Title,
		Metadata: map[string]string{
			"payment_id": pending.ID.String(),
			"course_id":  courseID.String(),
			"student_id": studentID.String(),
		},
		IdempotencyKey: pending.ID.String(),
	})
	switch {
	case errors.Is(err, payment.ErrProcessorUnavailable):
		s.fail(ctx, pending.ID, "payment processor unavailable")
		return Result{}, err
	case err != nil:
		return Result{}, s.reconcile(ctx, pending.ID, conf.Reference, err)
	case conf.Status != payment.ConfirmationSucceeded:
		reason := conf.FailureReason
		if reason == "" {
			reason = "payment was not completed"
		}
		s.fail(ctx, pending.ID, reason)
		return Result{}, &DeclinedError{PaymentID: pending.ID, Reason: reason}
	}

	var enrolled enrollment.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := payment.MarkCompleted(ctx, tx, pending.ID, conf.Reference); err != nil {
			return err
		}
		e, err := s.ledger.EnrollTx(ctx, tx, studentID, courseID, &pending.ID)
		if err != nil {
			return err
		}
		enrolled = e
		return nil
	})
	if err != nil {
		return Result{}, s.reconcile(ctx, pending.ID, conf.Reference, err)
	}
	metrics.RecordPayment(string(payment.StatusCompleted))
	s.guard.Invalidate(ctx, courseID)

	completed, err := payment.Get(ctx, s.db, pending.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{Payment: &completed, Enrollment: enrolled}, nil
}

func (s *Service) fail(ctx context.Context, paymentID uuid.UUID, reason string) {
	metrics.RecordPayment(string(payment.StatusFailed))
	if err := payment.MarkFailed(ctx, s.db, paymentID, reason); err != nil {
		s.logger.Error("failed to mark payment failed",
			slog.String("payment_id", paymentID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// reconcile flags a charge whose money may have moved without an enrollment.
func (s *Service) reconcile(ctx context.Context, paymentID uuid.UUID, reference string, cause error) error {
	metrics.RecordPayment(string(payment.StatusNeedsReview))
	s.logger.Error("payment requires reconciliation",
		slog.String("payment_id", paymentID.String()),
		slog.String("processor_reference", reference),
		slog.String("error", cause.Error()),
	)
	if err := payment.MarkNeedsReview(ctx, s.db, paymentID, reference, cause.Error()); err != nil {
		s.logger.Error("failed to flag payment for review",
			slog.String("payment_id", paymentID.String()),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("%w (payment %s): %v", ErrReconciliationRequired, paymentID, cause)
}
