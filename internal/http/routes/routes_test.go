package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamabdullah-dev/EdTech/internal/bootstrap"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/pkg/cache"
	"github.com/iamabdullah-dev/EdTech/pkg/config"
	"github.com/iamabdullah-dev/EdTech/pkg/database/dbtest"
	"github.com/iamabdullah-dev/EdTech/pkg/logger"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	require.NoError(t, bootstrap.Migrate(db, logger.Discard()))

	store := cache.NewMemoryCache()
	cfg := &config.Config{
		Env:     "test",
		Version: "test",
		Auth: config.AuthConfig{
			JWTSecret:        "access-secret",
			JWTRefreshSecret: "refresh-secret",
			AccessTokenTTL:   time.Hour,
			RefreshTokenTTL:  time.Hour,
		},
		Stripe: config.StripeConfig{Currency: "usd"},
	}

	engine := gin.New()
	engine.Use(request.Handler(logger.Discard()))
	Register(engine, Dependencies{
		Config:    cfg,
		DB:        db,
		Cache:     store,
		Facts:     course.NewFactsStore(store, time.Minute, logger.Discard()),
		Processor: payment.DisabledProcessor{},
		Logger:    logger.Discard(),
	})
	return engine
}

func TestRoutes(t *testing.T) {
	engine := newEngine(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/courses", http.StatusOK},
		{http.MethodGet, "/api/users/me", http.StatusUnauthorized},
		{http.MethodPut, "/api/users/profile", http.StatusUnauthorized},
		{http.MethodPut, "/api/users/password", http.StatusUnauthorized},
		{http.MethodGet, "/api/users/tutor/00000000-0000-0000-0000-000000000000", http.StatusNotFound},
		{http.MethodGet, "/api/courses/tutor/00000000-0000-0000-0000-000000000000", http.StatusOK},
		{http.MethodGet, "/api/videos/00000000-0000-0000-0000-000000000000", http.StatusNotFound},
		{http.MethodPost, "/api/enrollments", http.StatusUnauthorized},
		{http.MethodPost, "/api/enrollments/check", http.StatusUnauthorized},
		{http.MethodPost, "/api/payments/process", http.StatusUnauthorized},
		{http.MethodGet, "/api/payments/history", http.StatusUnauthorized},
		{http.MethodGet, "/api/tutors/00000000-0000-0000-0000-000000000000/stats", http.StatusUnauthorized},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
