package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/pkg/metrics"
)

// StalePaymentJob flags payments left pending longer than maxAge, which
// happens when the process stops between charging and recording the outcome.
type StalePaymentJob struct {
	db     *gorm.DB
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewStalePaymentJob creates the job.
func NewStalePaymentJob(db *gorm.DB, maxAge time.Duration, logger *slog.Logger) *StalePaymentJob {
	return &StalePaymentJob{db: db, maxAge: maxAge, logger: logger, now: time.Now}
}

// Name implements jobs.Job.
func (j *StalePaymentJob) Name() string { return "stale-payments" }

// Execute implements jobs.Job.
func (j *StalePaymentJob) Execute(ctx context.Context) error {
	stale, err := payment.ListStalePending(ctx, j.db, j.now().Add(-j.maxAge))
	if err != nil {
		return err
	}

	flagged := 0
	for _, p := range stale {
		reference := ""
		if p.ProcessorReference != nil {
			reference = *p.ProcessorReference
		}
		err := payment.MarkNeedsReview(ctx, j.db, p.ID, reference, "no processor outcome recorded within "+j.maxAge.String())
		if errors.Is(err, payment.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return err
		}
		flagged++
		metrics.RecordPayment(string(payment.StatusNeedsReview))
		j.logger.Warn("stale pending payment flagged for review",
			slog.String("payment_id", p.ID.String()),
			slog.String("student_id", p.StudentID.String()),
			slog.String("course_id", p.CourseID.String()),
		)
	}

	if flagged > 0 {
		j.logger.Info("stale payment sweep finished", slog.Int("flagged", flagged))
	}
	return nil
}
