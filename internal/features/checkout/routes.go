package checkout

import (
	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
)

// RegisterRoutes attaches the checkout endpoint to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth *middleware.Auth) {
	router.POST("/payments/process", auth.RequireRoles(access.RoleStudent), handler.Process)
}
