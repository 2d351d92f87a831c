package progress

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

// RegisterRoutes attaches progress reporting under the enrollment routes.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	router.POST("/enrollments/:id/progress", auth.RequireRoles(access.RoleStudent), handler.Report)
}
