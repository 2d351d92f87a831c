package enrollment

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

// RegisterRoutes attaches enrollment endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	studentOnly := auth.RequireRoles(access.RoleStudent)

	enrollments := router.Group("/enrollments")
	{
		enrollments.POST("", studentOnly, handler.Enroll)
		enrollments.POST("/check", studentOnly, handler.Check)
		enrollments.GET("/student/:studentId", studentOnly, handler.ListForStudent)
		enrollments.GET("/course/:courseId", auth.RequireRoles(access.RoleTutor), handler.ListForCourse)
		enrollments.GET("/:id", auth.Authenticate(), handler.GetByID)
	}
}
