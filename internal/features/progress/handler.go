package progress

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/metrics"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler processes progress HTTP requests.
type Handler struct {
	db      *gorm.DB
	tracker *Tracker
	logger  *slog.Logger
}

// NewHandler constructs a progress handler instance.
func NewHandler(db *gorm.DB, tracker *Tracker, logger *slog.Logger) *Handler {
	return &Handler{db: db, tracker: tracker, logger: logger}
}

// Report records the caller's progress on one video of their enrollment.
func (h *Handler) Report(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	enrollmentID, err := request.UUIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req struct {
		VideoID      uuid.UUID `json:"videoId" binding:"required"`
		IsCompleted  *bool     `json:"isCompleted"`
		LastPosition *int      `json:"lastPosition" binding:"omitempty,min=0"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ref, err := LoadEnrollment(c.Request.Context(), h.db, enrollmentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !access.CanReportProgress(actor, ref.StudentID) {
		response.Error(c, http.StatusForbidden, "Not authorized to update this enrollment", apperrors.ErrForbidden)
		return
	}

	patch := Patch{IsCompleted: req.IsCompleted, LastPosition: req.LastPosition}
	vp, err := h.tracker.Report(c.Request.Context(), h.db, enrollmentID, req.VideoID, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	metrics.RecordProgressReport(patch.Completes())

	response.NoStore(c)
	response.Fields(c, http.StatusOK, gin.H{"progress": vp})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEnrollmentNotFound):
		response.Error(c, http.StatusNotFound, "Enrollment not found", apperrors.ErrNotFound)
	case errors.Is(err, ErrVideoNotFound):
		response.Error(c, http.StatusNotFound, ErrVideoNotFound.Error(), apperrors.ErrNotFound)
	case errors.Is(err, ErrInvalidPosition):
		response.Error(c, http.StatusBadRequest, ErrInvalidPosition.Error(), apperrors.ErrValidation)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to update progress", err)
	}
}
