package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Build information, set with -ldflags at release time.
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Pinger is anything with a liveness check, such as the cache client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves liveness, readiness and version endpoints.
type Handler struct {
	db      *gorm.DB
	cache   Pinger
	version string
	logger  *slog.Logger
}

// NewHandler creates a health handler. cache may be nil.
func NewHandler(db *gorm.DB, cache Pinger, version string, logger *slog.Logger) *Handler {
	return &Handler{db: db, cache: cache, version: version, logger: logger}
}

// Response is the body of the health endpoints.
type Response struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health always reports ok while the process is serving.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Status: "ok", Timestamp: time.Now(), Version: h.version})
}

// Ready reports 503 when the database or cache is unreachable.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": h.checkDatabase(ctx)}
	if h.cache != nil {
		checks["cache"] = h.checkCache(ctx)
	}

	status, code := "ready", http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, Response{Status: status, Timestamp: time.Now(), Version: h.version, Checks: checks})
}

// Version returns build information.
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
	})
}

// DBStats returns connection pool statistics.
func (h *Handler) DBStats(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database unavailable"})
		return
	}

	stats := sqlDB.Stats()
	c.JSON(http.StatusOK, gin.H{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
	})
}

func (h *Handler) checkDatabase(ctx context.Context) string {
	sqlDB, err := h.db.DB()
	if err != nil {
		h.logger.Error("health check: database handle unavailable", slog.String("error", err.Error()))
		return "unavailable"
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		h.logger.Error("health check: database ping failed", slog.String("error", err.Error()))
		return "unhealthy"
	}
	return "ok"
}

func (h *Handler) checkCache(ctx context.Context) string {
	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("health check: cache ping failed", slog.String("error", err.Error()))
		return "unhealthy"
	}
	return "ok"
}
