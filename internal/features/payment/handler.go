package payment

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/pagination"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler processes payment reporting requests. Charging happens in checkout.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a payment handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// History lists the caller's payments.
func (h *Handler) History(c *gin.Context) {
	actor, ok := selfFromQuery(c, "studentId")
	if !ok {
		return
	}

	params := pagination.Extract(c)
	entries, total, err := History(c.Request.Context(), h.db, actor, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load payment history", err)
		return
	}
	response.NoStore(c)
	response.Success(c, http.StatusOK, entries, "", pagination.MetadataFrom(total, params))
}

// Earnings summarizes completed payments on the caller's courses.
func (h *Handler) Earnings(c *gin.Context) {
	actor, ok := selfFromQuery(c, "tutorId")
	if !ok {
		return
	}

	earnings, err := TutorEarnings(c.Request.Context(), h.db, actor)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "Failed to load earnings", err)
		return
	}
	response.NoStore(c)
	response.Success(c, http.StatusOK, earnings, "", nil)
}

// selfFromQuery returns the caller's id. A legacy ?<param>= naming another
// user is refused.
func selfFromQuery(c *gin.Context, param string) (uuid.UUID, bool) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required", apperrors.ErrUnauthorized)
		return uuid.Nil, false
	}

	if raw := c.Query(param); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(apperrors.Validation("Invalid " + param))
			return uuid.Nil, false
		}
		if !actor.ActsAs(id) {
			response.Error(c, http.StatusForbidden, "Access denied", apperrors.ErrForbidden)
			return uuid.Nil, false
		}
	}
	return actor.UserID, true
}
