package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// SuccessWithCache sends a success response that shared caches may keep for maxAge seconds.
func SuccessWithCache(c *gin.Context, status int, data interface{}, pagination interface{}, maxAge int) {
	c.Header("Cache-Control", cacheControl(maxAge))
	Success(c, status, data, "", pagination)
}

// NoStore marks the response as uncacheable. Used for per-user progress data.
func NoStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}

func cacheControl(maxAge int) string {
	if maxAge <= 0 {
		return "no-cache"
	}
	return "public, max-age=" + strconv.Itoa(maxAge)
}
