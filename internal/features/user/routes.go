package user

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the account endpoints. Anything touching the caller's
// own account goes through authenticated; profile reads are public.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, authenticated gin.HandlerFunc) {
	users := router.Group("/users")

	self := users.Group("", authenticated)
	self.GET("/me", handler.Me)
	self.PUT("/profile", handler.UpdateProfile)
	self.PUT("/password", handler.ChangePassword)

	users.GET("/tutor/:tutorId", handler.TutorProfile)
	users.GET("/:userId", handler.GetByID)
}
