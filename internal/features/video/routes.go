package video

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

// RegisterRoutes attaches video endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	tutorOnly := auth.RequireRoles(access.RoleTutor)

	videos := router.Group("/videos")
	{
		videos.GET("/course/:courseId", auth.Optional(), handler.ListByCourse)
		videos.GET("/:videoId", auth.Optional(), handler.GetByID)
		videos.POST("", tutorOnly, handler.Create)
		videos.PUT("/:videoId", tutorOnly, handler.Update)
		videos.DELETE("/:videoId", tutorOnly, handler.Delete)
	}
}
