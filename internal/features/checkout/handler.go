package checkout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/enrollment"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a checkout handler instance.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type processRequest struct {
	CourseID        uuid.UUID  `json:"courseId" binding:"required"`
	PaymentMethodID string     `json:"paymentMethodId"`
	UserID          *uuid.UUID `json:"userId"`
}

// Process charges the caller for a course and enrolls them.
func (h *Handler) Process(c *gin.Context) {
	var req processRequest
	if err := request.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return
	}
	studentID := actor.UserID
	if req.UserID != nil {
		studentID = *req.UserID
	}
	if !access.CanEnroll(actor, studentID) {
		response.Error(c, http.StatusForbidden, "Cannot act on behalf of another user", apperrors.ErrForbidden)
		return
	}

	result, err := h.service.Process(c.Request.Context(), actor, req.CourseID, req.PaymentMethodID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "Payment successful and enrolled in course"
	if result.Payment == nil {
		message = "Enrolled in free course"
	}
	response.Fields(c, http.StatusCreated, gin.H{
		"payment":    result.Payment,
		"enrollment": result.Enrollment,
		"message":    message,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var declined *DeclinedError
	switch {
	case errors.As(err, &declined):
		response.Error(c, http.StatusPaymentRequired, "Payment failed: "+declined.Reason, apperrors.ErrPaymentRequired)
	case errors.Is(err, ErrPaymentMethodRequired):
		response.Error(c, http.StatusBadRequest, "Payment method is required", apperrors.ErrValidation)
	case errors.Is(err, payment.ErrProcessorUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "Payments are currently unavailable", apperrors.ErrInternal)
	case errors.Is(err, ErrReconciliationRequired):
		response.Error(c, http.StatusConflict,
			"Your payment was received but enrollment could not be completed. Support has been notified.",
			apperrors.ErrReconciliationRequired)
	default:
		enrollment.RespondError(h.logger, c, err, "Payment processing failed")
	}
}
