package payment

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

// RegisterRoutes attaches payment reporting endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	payments := router.Group("/payments")
	{
		payments.GET("/history", auth.RequireRoles(access.RoleStudent), handler.History)
		payments.GET("/earnings", auth.RequireRoles(access.RoleTutor), handler.Earnings)
	}
}
