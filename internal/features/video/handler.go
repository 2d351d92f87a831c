package video

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler processes video HTTP requests.
type Handler struct {
	db     *gorm.DB
	facts  *course.FactsStore
	logger *slog.Logger
}

// NewHandler constructs a video handler instance.
func NewHandler(db *gorm.DB, facts *course.FactsStore, logger *slog.Logger) *Handler {
	return &Handler{db: db, facts: facts, logger: logger}
}

// ListByCourse returns a course's videos in display order.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	crs, err := course.Get(c.Request.Context(), h.db, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to load videos")
		return
	}
	if !access.CanViewCourse(middleware.OptionalIdentity(c), crs.Published, crs.TutorID) {
		h.respondError(c, course.ErrCourseNotFound, "")
		return
	}

	videos, err := ListByCourse(c.Request.Context(), h.db, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to load videos")
		return
	}
	response.Success(c, http.StatusOK, videos, "", nil)
}

// GetByID returns one video. Videos of a draft course look missing to
// everyone but its tutor.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := request.UUIDParam(c, "videoId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	v, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load video")
		return
	}
	crs, err := course.Get(c.Request.Context(), h.db, v.CourseID)
	if err != nil {
		h.respondError(c, err, "Failed to load video")
		return
	}
	if !access.CanViewCourse(middleware.OptionalIdentity(c), crs.Published, crs.TutorID) {
		h.respondError(c, ErrVideoNotFound, "")
		return
	}

	if !crs.Published {
		response.NoStore(c)
	}
	response.Success(c, http.StatusOK, v, "", nil)
}

// Create adds a video to a course owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	var req struct {
		CourseID      uuid.UUID `json:"courseId" binding:"required"`
		Title         string    `json:"title" binding:"required,notblank,max=200"`
		Description   string    `json:"description" binding:"max=5000"`
		VideoURL      string    `json:"videoUrl" binding:"required,notblank,max=2048"`
		SequenceOrder *int      `json:"sequenceOrder" binding:"omitempty,min=0"`
		Duration      int       `json:"duration" binding:"required,gt=0"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if _, ok := h.authorize(c, req.CourseID); !ok {
		return
	}

	v, err := Create(c.Request.Context(), h.db, CreateInput{
		CourseID:      req.CourseID,
		Title:         req.Title,
		Description:   req.Description,
		VideoURL:      req.VideoURL,
		SequenceOrder: req.SequenceOrder,
		Duration:      req.Duration,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create video")
		return
	}
	h.facts.Invalidate(c.Request.Context(), v.CourseID)
	response.Created(c, v, "Video added")
}

// Update applies a partial update to a video of an owned course.
func (h *Handler) Update(c *gin.Context) {
	v, ok := h.ownedVideo(c)
	if !ok {
		return
	}

	var req struct {
		Title         *string `json:"title" binding:"omitempty,max=200"`
		Description   *string `json:"description" binding:"omitempty,max=5000"`
		VideoURL      *string `json:"videoUrl" binding:"omitempty,max=2048"`
		SequenceOrder *int    `json:"sequenceOrder"`
		Duration      *int    `json:"duration"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := Update(c.Request.Context(), h.db, v.ID, Patch{
		Title:         req.Title,
		Description:   req.Description,
		VideoURL:      req.VideoURL,
		SequenceOrder: req.SequenceOrder,
		Duration:      req.Duration,
	})
	if err != nil {
		h.respondError(c, err, "Failed to update video")
		return
	}
	h.facts.Invalidate(c.Request.Context(), v.CourseID)
	response.Success(c, http.StatusOK, updated, "Video updated", nil)
}

// Delete removes a video of an owned course.
func (h *Handler) Delete(c *gin.Context) {
	v, ok := h.ownedVideo(c)
	if !ok {
		return
	}

	if err := Delete(c.Request.Context(), h.db, v.ID); err != nil {
		h.respondError(c, err, "Failed to delete video")
		return
	}
	h.facts.Invalidate(c.Request.Context(), v.CourseID)
	response.Success(c, http.StatusOK, nil, "Video deleted", nil)
}

func (h *Handler) ownedVideo(c *gin.Context) (Video, bool) {
	id, err := request.UUIDParam(c, "videoId")
	if err != nil {
		_ = c.Error(err)
		return Video{}, false
	}

	v, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load video")
		return Video{}, false
	}
	if _, ok := h.authorize(c, v.CourseID); !ok {
		return Video{}, false
	}
	return v, true
}

// authorize checks that the caller owns courseID.
func (h *Handler) authorize(c *gin.Context, courseID uuid.UUID) (course.Course, bool) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return course.Course{}, false
	}

	crs, err := course.Get(c.Request.Context(), h.db, courseID)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return course.Course{}, false
	}
	if !access.CanManageCourse(actor, crs.TutorID) {
		response.Error(c, http.StatusForbidden, "Not authorized to manage this course", apperrors.ErrForbidden)
		return course.Course{}, false
	}
	return crs, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrVideoNotFound):
		response.Error(c, http.StatusNotFound, "Video not found", apperrors.ErrNotFound)
	case errors.Is(err, course.ErrCourseNotFound):
		response.Error(c, http.StatusNotFound, "Course not found", apperrors.ErrNotFound)
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrURLRequired),
		errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrInvalidOrder):
		response.Error(c, http.StatusBadRequest, err.Error(), apperrors.ErrValidation)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
