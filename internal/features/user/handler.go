package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler processes user HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a user handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	usr, err := Get(c.Request.Context(), h.db, actor.UserID)
	if err != nil {
		h.respondError(c, err, "Failed to load user")
		return
	}
	response.NoStore(c)
	response.Success(c, http.StatusOK, usr, "", nil)
}

// UpdateProfile edits the caller's own name, email or bio.
func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	var req struct {
		UserID   *uuid.UUID `json:"userId"`
		FullName *string    `json:"fullName" binding:"omitempty,notblank,max=100"`
		Email    *string    `json:"email" binding:"omitempty,max=255"`
		Bio      *string    `json:"bio" binding:"omitempty,max=2000"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	if req.UserID != nil && !actor.ActsAs(*req.UserID) {
		response.Error(c, http.StatusForbidden, "Cannot update another user's profile", apperrors.ErrForbidden)
		return
	}

	usr, err := UpdateProfile(c.Request.Context(), h.db, actor.UserID, Patch{
		FullName: req.FullName,
		Email:    req.Email,
		Bio:      req.Bio,
	})
	if err != nil {
		h.respondError(c, err, "Failed to update profile")
		return
	}
	response.Success(c, http.StatusOK, usr, "Profile updated", nil)
}

// ChangePassword replaces the caller's password.
func (h *Handler) ChangePassword(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := ChangePassword(c.Request.Context(), h.db, actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err, "Failed to change password")
		return
	}
	response.Success(c, http.StatusOK, nil, "Password updated successfully", nil)
}

// GetByID returns the public profile of any user, typically a course's tutor.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	usr, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load user")
		return
	}
	response.Success(c, http.StatusOK, usr.Public(), "", nil)
}

// TutorProfile returns a tutor's public page with their published courses.
func (h *Handler) TutorProfile(c *gin.Context) {
	id, err := request.UUIDParam(c, "tutorId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := LoadTutorProfile(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "Failed to load tutor")
		return
	}
	response.Success(c, http.StatusOK, profile, "", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "User not found", apperrors.ErrNotFound)
	case errors.Is(err, ErrTutorNotFound):
		response.Error(c, http.StatusNotFound, "Tutor not found", apperrors.ErrNotFound)
	case errors.Is(err, ErrEmailTaken):
		response.Error(c, http.StatusConflict, "Email already in use", apperrors.ErrConflict)
	case errors.Is(err, ErrWrongPassword):
		response.Error(c, http.StatusUnauthorized, "Current password is incorrect", apperrors.ErrUnauthorized)
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrMissingName),
		errors.Is(err, ErrNothingToUpdate):
		response.Error(c, http.StatusBadRequest, err.Error(), apperrors.ErrValidation)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
