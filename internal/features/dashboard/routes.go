package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	tutors := router.Group("/tutors")
	{
		tutors.GET("/:tutorId/stats", auth.RequireRoles(access.RoleTutor), handler.GetTutorStats)
	}
}
