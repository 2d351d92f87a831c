package request

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

// Handler renders errors attached with c.Error when no response was written.
func Handler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode() >= http.StatusInternalServerError {
				response.ErrorWithLog(logger, c, appErr.StatusCode(), appErr.Message(), err)
				return
			}
			c.AbortWithStatusJSON(appErr.StatusCode(), response.Envelope{
				Success: false,
				Message: appErr.Message(),
				Error:   appErr.Code(),
				Data:    fieldsOrNil(appErr),
			})
			return
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "Resource not found", apperrors.ErrNotFound)
			return
		}
		response.ErrorWithLog(logger, c, http.StatusInternalServerError, "Internal server error", err)
	}
}

func fieldsOrNil(e *apperrors.AppError) interface{} {
	if len(e.Fields()) == 0 {
		return nil
	}
	return gin.H{"fields": e.Fields()}
}
