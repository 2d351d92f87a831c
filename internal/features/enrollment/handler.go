package enrollment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/catalog"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler processes enrollment HTTP requests.
type Handler struct {
	db     *gorm.DB
	ledger *Ledger
	logger *slog.Logger
}

// NewHandler constructs an enrollment handler instance.
func NewHandler(db *gorm.DB, ledger *Ledger, logger *slog.Logger) *Handler {
	return &Handler{db: db, ledger: ledger, logger: logger}
}

// Enroll enrolls the caller in a course.
func (h *Handler) Enroll(c *gin.Context) {
	var req struct {
		CourseID  uuid.UUID  `json:"courseId" binding:"required"`
		StudentID *uuid.UUID `json:"studentId"`
		PaymentID *uuid.UUID `json:"paymentId"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	studentID, ok := h.actingStudent(c, req.StudentID)
	if !ok {
		return
	}

	enrollment, err := h.ledger.Enroll(c.Request.Context(), h.db, studentID, req.CourseID, req.PaymentID)
	if err != nil {
		RespondError(h.logger, c, err, "Enrollment failed")
		return
	}
	response.Fields(c, http.StatusCreated, gin.H{"enrollment": enrollment})
}

// Check reports whether the caller is enrolled in a course.
func (h *Handler) Check(c *gin.Context) {
	var req struct {
		CourseID  uuid.UUID  `json:"courseId" binding:"required"`
		StudentID *uuid.UUID `json:"studentId"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	studentID, ok := h.actingStudent(c, req.StudentID)
	if !ok {
		return
	}

	status, err := CheckStatus(c.Request.Context(), h.db, studentID, req.CourseID)
	if err != nil {
		RespondError(h.logger, c, err, "Failed to check enrollment")
		return
	}
	response.NoStore(c)
	response.Fields(c, http.StatusOK, gin.H{"isEnrolled": status.IsEnrolled, "enrollment": status.Enrollment})
}

// ListForStudent lists the caller's own enrollments.
func (h *Handler) ListForStudent(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	studentID, err := request.UUIDParam(c, "studentId")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !access.CanListStudentEnrollments(actor, studentID) {
		response.Error(c, http.StatusForbidden, "Access denied", apperrors.ErrForbidden)
		return
	}

	views, err := ListForStudent(c.Request.Context(), h.db, studentID)
	if err != nil {
		RespondError(h.logger, c, err, "Failed to load enrollments")
		return
	}
	response.NoStore(c)
	response.Fields(c, http.StatusOK, gin.H{"count": len(views), "enrollments": views})
}

// ListForCourse lists a course's roster for its tutor.
func (h *Handler) ListForCourse(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	crs, err := course.Get(c.Request.Context(), h.db, courseID)
	if err != nil {
		RespondError(h.logger, c, err, "Failed to load enrollments")
		return
	}
	if !access.CanManageCourse(actor, crs.TutorID) {
		response.Error(c, http.StatusForbidden, "Access denied", apperrors.ErrForbidden)
		return
	}

	views, err := ListForCourse(c.Request.Context(), h.db, courseID)
	if err != nil {
		RespondError(h.logger, c, err, "Failed to load enrollments")
		return
	}
	response.NoStore(c)
	response.Fields(c, http.StatusOK, gin.H{"count": len(views), "enrollments": views})
}

// GetByID returns an enrollment with per-video progress to its student or
// the course's tutor.
func (h *Handler) GetByID(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	id, err := request.UUIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	detail, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		RespondError(h.logger, c, err, "Failed to load enrollment")
		return
	}
	if !access.CanViewEnrollment(actor, detail.StudentID, detail.TutorID) {
		response.Error(c, http.StatusForbidden, "Access denied", apperrors.ErrForbidden)
		return
	}
	response.NoStore(c)
	response.Fields(c, http.StatusOK, gin.H{"enrollment": detail})
}

// actingStudent resolves the student from the token. A body studentId is
// accepted only when it names the caller.
func (h *Handler) actingStudent(c *gin.Context, claimed *uuid.UUID) (uuid.UUID, bool) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return uuid.Nil, false
	}

	studentID := actor.UserID
	if claimed != nil {
		studentID = *claimed
	}
	if !access.CanEnroll(actor, studentID) {
		response.Error(c, http.StatusForbidden, "Cannot act on behalf of another user", apperrors.ErrForbidden)
		return uuid.Nil, false
	}
	return studentID, true
}

// RespondError maps ledger and guard errors to responses.
func RespondError(logger *slog.Logger, c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, catalog.ErrCourseNotFound),
		errors.Is(err, catalog.ErrCourseNotPublished),
		errors.Is(err, course.ErrCourseNotFound):
		response.Error(c, http.StatusNotFound, "Course not found or not available for enrollment", apperrors.ErrNotFound)
	case errors.Is(err, catalog.ErrStudentNotFound):
		response.Error(c, http.StatusNotFound, "Student not found", apperrors.ErrNotFound)
	case errors.Is(err, ErrEnrollmentNotFound):
		response.Error(c, http.StatusNotFound, "Enrollment not found", apperrors.ErrNotFound)
	case errors.Is(err, catalog.ErrAlreadyEnrolled):
		response.Error(c, http.StatusBadRequest, "Student is already enrolled in this course", apperrors.ErrConflict)
	case errors.Is(err, ErrPaymentRequired):
		response.Error(c, http.StatusPaymentRequired, "Payment is required to enroll in this course", apperrors.ErrPaymentRequired)
	default:
		response.ErrorWithLog(logger, c, http.StatusInternalServerError, fallback, err)
	}
}
