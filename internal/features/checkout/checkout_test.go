package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/catalog"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/enrollment"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/internal/features/progress"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/internal/features/video"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/database/dbtest"
	"github.com/iamabdullah-dev/EdTech/pkg/logger"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

type processorFunc func(ctx context.Context, charge payment.Charge) (payment.Confirmation, error)

func (f processorFunc) Confirm(ctx context.Context, charge payment.Charge) (payment.Confirmation, error) {
	return f(ctx, charge)
}

func succeed(reference string) processorFunc {
	return func(context.Context, payment.Charge) (payment.Confirmation, error) {
		return payment.Confirmation{Status: payment.ConfirmationSucceeded, Reference: reference}, nil
	}
}

type fixture struct {
	db      *gorm.DB
	student user.User
	paid    course.Course
	free    course.Course
	draft   course.Course
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t,
		&user.User{}, &course.Course{}, &video.Video{}, &enrollment.Enrollment{},
		&payment.Payment{}, &progress.CourseProgress{}, &progress.VideoProgress{},
	)

	tutor, err := user.Create(ctx, db, user.CreateInput{FullName: "Tutor", Email: "tutor@example.com", Password: "password123", Role: access.RoleTutor})
	require.NoError(t, err)
	student, err := user.Create(ctx, db, user.CreateInput{FullName: "Student", Email: "student@example.com", Password: "password123", Role: access.RoleStudent})
	require.NoError(t, err)

	newCourse := func(title, price string, published bool) course.Course {
		amount, err := types.NewMoneyFromString(price)
		require.NoError(t, err)
		crs, err := course.Create(ctx, db, course.CreateInput{TutorID: tutor.ID, Title: title, Price: amount})
		require.NoError(t, err)
		_, err = video.Create(ctx, db, video.CreateInput{CourseID: crs.ID, Title: "Intro", VideoURL: "https://cdn/v", Duration: 120})
		require.NoError(t, err)
		if published {
			crs, err = course.Update(ctx, db, crs.ID, course.Patch{Published: &published})
			require.NoError(t, err)
		}
		return crs
	}

	return fixture{
		db:      db,
		student: student,
		paid:    newCourse("Paid", "29.99", true),
		free:    newCourse("Free", "0", true),
		draft:   newCourse("Draft", "29.99", false),
	}
}

func (f fixture) service(p payment.Processor) *Service {
	guard := catalog.NewGuard(nil)
	return NewService(f.db, guard, enrollment.NewLedger(guard), p, "usd", logger.Discard())
}

func (f fixture) payments(t *testing.T) []payment.Payment {
	t.Helper()
	var all []payment.Payment
	require.NoError(t, f.db.Order("created_at ASC").Find(&all).Error)
	return all
}

func (f fixture) enrollments(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&enrollment.Enrollment{}).Count(&n).Error)
	return n
}

func TestProcessPaidCourse(t *testing.T) {
	f := setup(t)
	var seen payment.Charge
	svc := f.service(processorFunc(func(_ context.Context, charge payment.Charge) (payment.Confirmation, error) {
		seen = charge
		return payment.Confirmation{Status: payment.ConfirmationSucceeded, Reference: "pi_123"}, nil
	}))

	result, err := svc.Process(context.Background(), f.student.Identity(), f.paid.ID, "pm_card_visa")
	require.NoError(t, err)

	require.NotNil(t, result.Payment)
	assert.Equal(t, payment.StatusCompleted, result.Payment.Status)
	require.NotNil(t, result.Payment.ProcessorReference)
	assert.Equal(t, "pi_123", *result.Payment.ProcessorReference)
	require.NotNil(t, result.Enrollment.PaymentID)
	assert.Equal(t, result.Payment.ID, *result.Enrollment.PaymentID)

	assert.Equal(t, "29.99", seen.Amount.String())
	assert.Equal(t, types.CurrencyUSD, seen.Currency)
	assert.Equal(t, "pm_card_visa", seen.PaymentMethodID)
	assert.Equal(t, result.Payment.ID.String(), seen.IdempotencyKey)
	assert.Equal(t, f.paid.ID.String(), seen.Metadata["course_id"])

	cp, err := progress.Get(context.Background(), f.db, result.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cp.TotalVideos)
}

func TestProcessFreeCourseSkipsPayment(t *testing.T) {
	f := setup(t)
	svc := f.service(processorFunc(func(context.Context, payment.Charge) (payment.Confirmation, error) {
		t.Fatal("processor must not be called for free courses")
		return payment.Confirmation{}, nil
	}))

	result, err := svc.Process(context.Background(), f.student.Identity(), f.free.ID, "")
	require.NoError(t, err)
	assert.Nil(t, result.Payment)
	assert.Nil(t, result.Enrollment.PaymentID)
	assert.Empty(t, f.payments(t))
}

func TestProcessIneligibleWritesNothing(t *testing.T) {
	f := setup(t)
	called := false
	svc := f.service(processorFunc(func(context.Context, payment.Charge) (payment.Confirmation, error) {
		called = true
		return payment.Confirmation{}, nil
	}))
	ctx := context.Background()

	_, err := svc.Process(ctx, f.student.Identity(), f.draft.ID, "pm_card_visa")
	assert.ErrorIs(t, err, catalog.ErrCourseNotPublished)

	_, err = svc.Process(ctx, f.student.Identity(), uuid.New(), "pm_card_visa")
	assert.ErrorIs(t, err, catalog.ErrCourseNotFound)

	_, err = svc.Process(ctx, f.student.Identity(), f.paid.ID, " ")
	assert.ErrorIs(t, err, ErrPaymentMethodRequired)

	assert.False(t, called)
	assert.Empty(t, f.payments(t))
	assert.Zero(t, f.enrollments(t))
}

func TestProcessDeclined(t *testing.T) {
	f := setup(t)
	svc := f.service(processorFunc(func(context.Context, payment.Charge) (payment.Confirmation, error) {
		return payment.Confirmation{Status: payment.ConfirmationFailed, Reference: "pi_456", FailureReason: "Your card was declined."}, nil
	}))

	_, err := svc.Process(context.Background(), f.student.Identity(), f.paid.ID, "pm_card_chargeDeclined")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "Your card was declined.", declined.Reason)

	payments := f.payments(t)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusFailed, payments[0].Status)
	require.NotNil(t, payments[0].FailureReason)
	assert.Equal(t, "Your card was declined.", *payments[0].FailureReason)
	assert.Zero(t, f.enrollments(t))
}

func TestProcessWithoutProcessor(t *testing.T) {
	f := setup(t)
	svc := f.service(payment.DisabledProcessor{})

	_, err := svc.Process(context.Background(), f.student.Identity(), f.paid.ID, "pm_card_visa")
	assert.ErrorIs(t, err, payment.ErrProcessorUnavailable)

	payments := f.payments(t)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusFailed, payments[0].Status)
	assert.Zero(t, f.enrollments(t))
}

func TestProcessUnknownOutcomeNeedsReview(t *testing.T) {
	f := setup(t)
	svc := f.service(processorFunc(func(context.Context, payment.Charge) (payment.Confirmation, error) {
		return payment.Confirmation{Reference: "pi_789"}, payment.ErrOutcomeUnknown
	}))

	_, err := svc.Process(context.Background(), f.student.Identity(), f.paid.ID, "pm_card_visa")
	assert.ErrorIs(t, err, ErrReconciliationRequired)

	payments := f.payments(t)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusNeedsReview, payments[0].Status)
	require.NotNil(t, payments[0].ProcessorReference)
	assert.Equal(t, "pi_789", *payments[0].ProcessorReference)
	assert.Zero(t, f.enrollments(t))
}

func TestProcessEnrollFailureAfterChargeNeedsReview(t *testing.T) {
	f := setup(t)
	svc := f.service(processorFunc(func(ctx context.Context, _ payment.Charge) (payment.Confirmation, error) {
		// another request enrolls the student while the charge is in flight
		err := f.db.WithContext(ctx).Create(&enrollment.Enrollment{
			StudentID: f.student.ID, CourseID: f.paid.ID, Status: types.EnrollmentStatusActive,
		}).Error
		if err != nil {
			return payment.Confirmation{}, err
		}
		return payment.Confirmation{Status: payment.ConfirmationSucceeded, Reference: "pi_race"}, nil
	}))

	_, err := svc.Process(context.Background(), f.student.Identity(), f.paid.ID, "pm_card_visa")
	assert.ErrorIs(t, err, ErrReconciliationRequired)
	assert.False(t, errors.Is(err, catalog.ErrAlreadyEnrolled))

	payments := f.payments(t)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.StatusNeedsReview, payments[0].Status)
	require.NotNil(t, payments[0].ProcessorReference)
	assert.Equal(t, "pi_race", *payments[0].ProcessorReference)
	assert.Equal(t, int64(1), f.enrollments(t))
}

func TestStalePaymentJob(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	old, err := payment.CreatePending(ctx, f.db, payment.PendingInput{StudentID: f.student.ID, CourseID: f.paid.ID, Amount: f.paid.Price})
	require.NoError(t, err)
	fresh, err := payment.CreatePending(ctx, f.db, payment.PendingInput{StudentID: f.student.ID, CourseID: f.paid.ID, Amount: f.paid.Price})
	require.NoError(t, err)

	job := NewStalePaymentJob(f.db, 15*time.Minute, logger.Discard())
	job.now = func() time.Time { return old.CreatedAt.Add(20 * time.Minute) }
	require.NoError(t, f.db.Model(&payment.Payment{}).Where("id = ?", fresh.ID).
		Update("created_at", old.CreatedAt.Add(10*time.Minute)).Error)

	require.NoError(t, job.Execute(ctx))

	got, err := payment.Get(ctx, f.db, old.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusNeedsReview, got.Status)

	got, err = payment.Get(ctx, f.db, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, got.Status)

	assert.Equal(t, "stale-payments", job.Name())
}

func TestProcessHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := setup(t)

	serve := func(p payment.Processor, body string) (*httptest.ResponseRecorder, map[string]any) {
		h := NewHandler(f.service(p), logger.Discard())
		r := gin.New()
		r.Use(request.Handler(logger.Discard()), func(c *gin.Context) { middleware.SetIdentity(c, f.student.Identity()) })
		r.POST("/payments/process", h.Process)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		var out map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return w, out
	}

	w, _ := serve(succeed("pi_1"), `{"courseId":"`+f.paid.ID.String()+`","paymentMethodId":"pm_1","userId":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := serve(processorFunc(func(context.Context, payment.Charge) (payment.Confirmation, error) {
		return payment.Confirmation{Status: payment.ConfirmationFailed, FailureReason: "insufficient funds"}, nil
	}), `{"courseId":"`+f.paid.ID.String()+`","paymentMethodId":"pm_1"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "Payment failed: insufficient funds", body["message"])

	w, _ = serve(payment.DisabledProcessor{}, `{"courseId":"`+f.paid.ID.String()+`","paymentMethodId":"pm_1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, body = serve(succeed("pi_2"), `{"courseId":"`+f.paid.ID.String()+`","paymentMethodId":"pm_1","userId":"`+f.student.ID.String()+`"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Payment successful and enrolled in course", body["message"])
	assert.NotNil(t, body["payment"])
	assert.NotNil(t, body["enrollment"])

	w, body = serve(succeed("pi_3"), `{"courseId":"`+f.paid.ID.String()+`","paymentMethodId":"pm_1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", body["error"])
}
