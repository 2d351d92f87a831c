package course

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

// RegisterRoutes attaches course endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	tutorOnly := auth.RequireRoles(access.RoleTutor)

	courses := router.Group("/courses")
	{
		courses.GET("", handler.List)
		courses.GET("/tutor/mine", tutorOnly, handler.Mine)
		courses.GET("/tutor/:tutorId", auth.Optional(), handler.ByTutor)
		courses.GET("/:courseId", auth.Optional(), handler.GetByID)
		courses.POST("", tutorOnly, handler.Create)
		courses.PUT("/:courseId", tutorOnly, handler.Update)
		courses.DELETE("/:courseId", tutorOnly, handler.Delete)
	}
}
