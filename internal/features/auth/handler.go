package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler processes authentication HTTP requests.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an auth handler instance.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register creates a new account.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName" binding:"required,notblank,max=100"`
		Email    string `json:"email" binding:"required,max=255"`
		Password string `json:"password" binding:"required,min=8,max=72"`
		UserType string `json:"userType" binding:"required,oneof=student tutor"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	role, err := access.ParseRole(req.UserType)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "userType must be student or tutor", apperrors.ErrValidation)
		return
	}

	result, err := h.service.Register(c.Request.Context(), RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		h.respondError(c, err, "Registration failed")
		return
	}
	response.Created(c, result, "Registration successful")
}

// Login authenticates with email and password.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "Login failed")
		return
	}
	response.Success(c, http.StatusOK, result, "Login successful", nil)
}

// Google signs in with a Google ID token.
func (h *Handler) Google(c *gin.Context) {
	var req struct {
		IDToken  string `json:"idToken" binding:"required"`
		UserType string `json:"userType" binding:"omitempty,oneof=student tutor"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	role := access.RoleStudent
	if req.UserType != "" {
		role = access.Role(req.UserType)
	}

	result, err := h.service.Google(c.Request.Context(), req.IDToken, role)
	if err != nil {
		h.respondError(c, err, "Google sign-in failed")
		return
	}
	response.Success(c, http.StatusOK, result, "Login successful", nil)
}

// Refresh issues a new token pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err, "Token refresh failed")
		return
	}
	response.Success(c, http.StatusOK, pair, "", nil)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		response.Error(c, http.StatusUnauthorized, "Invalid credentials", apperrors.ErrUnauthorized)
	case errors.Is(err, ErrInactiveAccount):
		response.Error(c, http.StatusForbidden, ErrInactiveAccount.Error(), apperrors.ErrForbidden)
	case errors.Is(err, user.ErrEmailTaken):
		response.Error(c, http.StatusConflict, "User already exists", apperrors.ErrConflict)
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrGoogleEmail),
		errors.Is(err, user.ErrInvalidPassword),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrMissingName):
		response.Error(c, http.StatusBadRequest, err.Error(), apperrors.ErrValidation)
	case errors.Is(err, ErrGoogleDisabled):
		response.Error(c, http.StatusNotFound, err.Error(), apperrors.ErrNotFound)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
