package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// GetTutorStats returns dashboard statistics for the calling tutor.
// GET /tutors/:tutorId/stats
func (h *Handler) GetTutorStats(c *gin.Context) {
	actor, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Authentication required.", apperrors.ErrUnauthorized)
		return
	}

	tutorID, err := request.UUIDParam(c, "tutorId")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !access.CanViewTutorStats(actor, tutorID) {
		response.Error(c, http.StatusForbidden, "Access denied", apperrors.ErrForbidden)
		return
	}

	stats, err := LoadTutorStats(c.Request.Context(), h.db, tutorID)
	if err != nil {
		h.logger.Error("Failed to load tutor stats", "error", err, "tutorId", tutorID)
		response.Error(c, http.StatusInternalServerError, "Failed to retrieve dashboard data", apperrors.ErrInternal)
		return
	}

	response.NoStore(c)
	response.Success(c, http.StatusOK, stats, "", nil)
}
