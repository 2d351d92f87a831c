package course

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
	"github.com/iamabdullah-dev/EdTech/pkg/pagination"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

const catalogMaxAge = 60

// Handler processes course HTTP requests.
type Handler struct {
	db     *gorm.DB
	facts  *FactsStore
	logger *slog.Logger
}

// NewHandler constructs a course handler instance.
func NewHandler(db *gorm.DB, facts *FactsStore, logger *slog.Logger) *Handler {
	return &Handler{db: db, facts: facts, logger: logger}
}

// CatalogEntry is a published course as listed in the public catalog.
type CatalogEntry struct {
	Listing
	Facts
}

// List returns the published catalog, newest first.
func (h *Handler) List(c *gin.Context) {
	params := pagination.Extract(c)

	listings, total, err := ListPublished(c.Request.Context(), h.db, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load courses", err)
		return
	}

	ids := make([]uuid.UUID, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	facts, err := h.facts.Load(c.Request.Context(), h.db, ids...)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load courses", err)
		return
	}

	entries := make([]CatalogEntry, len(listings))
	for i, l := range listings {
		entries[i] = CatalogEntry{Listing: l, Facts: facts[l.ID]}
	}
	response.SuccessWithCache(c, http.StatusOK, entries, pagination.MetadataFrom(total, params), catalogMaxAge)
}

// GetByID returns a course with its ordered videos. Drafts are visible to
// their owner only and look missing to everyone else.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	course, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return
	}
	if !access.CanViewCourse(middleware.OptionalIdentity(c), course.Published, course.TutorID) {
		h.respondError(c, ErrCourseNotFound, "")
		return
	}

	facts, err := h.facts.Load(c.Request.Context(), h.db, course.ID)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return
	}
	detail, err := LoadDetail(c.Request.Context(), h.db, course, facts[course.ID])
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return
	}

	if !course.Published {
		response.NoStore(c)
	}
	response.Success(c, http.StatusOK, detail, "", nil)
}

// Mine lists the authenticated tutor's courses.
func (h *Handler) Mine(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	courses, err := ListByTutor(c.Request.Context(), h.db, actor.UserID, true)
	if err != nil {
		h.respondError(c, err, "Failed to load courses")
		return
	}
	response.NoStore(c)
	response.Success(c, http.StatusOK, courses, "", nil)
}

// ByTutor lists one tutor's courses. Anyone sees the published ones; the
// tutor also sees their drafts.
func (h *Handler) ByTutor(c *gin.Context) {
	tutorID, err := request.UUIDParam(c, "tutorId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	withDrafts := false
	if actor, ok := middleware.Identity(c); ok {
		withDrafts = access.CanManageCourse(actor, tutorID)
	}

	courses, err := ListByTutor(c.Request.Context(), h.db, tutorID, withDrafts)
	if err != nil {
		h.respondError(c, err, "Failed to load courses")
		return
	}
	if withDrafts {
		response.NoStore(c)
	}
	response.Success(c, http.StatusOK, courses, "", nil)
}

// Create adds a draft course owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	var req struct {
		Title        string       `json:"title" binding:"required,notblank,max=200"`
		Description  string       `json:"description" binding:"max=5000"`
		ThumbnailURL *string      `json:"thumbnailUrl" binding:"omitempty,max=2048"`
		Price        *types.Money `json:"price"`
		TutorID      *uuid.UUID   `json:"tutorId"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	if req.TutorID != nil && !actor.ActsAs(*req.TutorID) {
		response.Error(c, http.StatusForbidden, "Cannot create a course for another tutor", apperrors.ErrForbidden)
		return
	}

	input := CreateInput{
		TutorID:      actor.UserID,
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
	}
	if req.Price != nil {
		input.Price = *req.Price
	}

	course, err := Create(c.Request.Context(), h.db, input)
	if err != nil {
		h.respondError(c, err, "Failed to create course")
		return
	}
	response.Created(c, course, "Course created")
}

// Update applies a partial update to an owned course.
func (h *Handler) Update(c *gin.Context) {
	course, ok := h.ownedCourse(c)
	if !ok {
		return
	}

	var req struct {
		Title        *string      `json:"title" binding:"omitempty,max=200"`
		Description  *string      `json:"description" binding:"omitempty,max=5000"`
		ThumbnailURL *string      `json:"thumbnailUrl" binding:"omitempty,max=2048"`
		Price        *types.Money `json:"price"`
		IsPublished  *bool        `json:"isPublished"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := Update(c.Request.Context(), h.db, course.ID, Patch{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Price:        req.Price,
		Published:    req.IsPublished,
	})
	if err != nil {
		h.respondError(c, err, "Failed to update course")
		return
	}
	response.Success(c, http.StatusOK, updated, "Course updated", nil)
}

// Delete removes an owned course and everything attached to it.
func (h *Handler) Delete(c *gin.Context) {
	course, ok := h.ownedCourse(c)
	if !ok {
		return
	}

	if err := Delete(c.Request.Context(), h.db, course.ID); err != nil {
		h.respondError(c, err, "Failed to delete course")
		return
	}
	h.facts.Invalidate(c.Request.Context(), course.ID)
	response.Success(c, http.StatusOK, nil, "Course deleted", nil)
}

// ownedCourse loads :courseId and checks that the caller owns it.
func (h *Handler) ownedCourse(c *gin.Context) (Course, bool) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return Course{}, false
	}

	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		_ = c.Error(err)
		return Course{}, false
	}

	course, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load course")
		return Course{}, false
	}
	if !access.CanManageCourse(actor, course.TutorID) {
		response.Error(c, http.StatusForbidden, "Not authorized to manage this course", apperrors.ErrForbidden)
		return Course{}, false
	}
	return course, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCourseNotFound):
		response.Error(c, http.StatusNotFound, "Course not found", apperrors.ErrNotFound)
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrNegativePrice),
		errors.Is(err, ErrPriceTooPrecise),
		errors.Is(err, ErrPriceTooLarge):
		response.Error(c, http.StatusBadRequest, err.Error(), apperrors.ErrValidation)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
