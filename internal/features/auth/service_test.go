package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/internal/utils/jwt"
	"github.com/iamabdullah-dev/EdTech/pkg/database/dbtest"
	"github.com/iamabdullah-dev/EdTech/pkg/logger"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newService(t *testing.T) *Service {
	t.Helper()
	db := dbtest.Open(t, &user.User{})
	issuer := jwt.NewIssuer("access", "refresh", time.Hour, 24*time.Hour)
	return NewService(db, issuer, "client-id.apps.googleusercontent.com")
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	reg, err := svc.Register(ctx, RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "Ada@Example.com ",
		Password: "correct-horse",
		Role:     access.RoleTutor,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, access.RoleTutor, reg.User.Role)

	claims, err := svc.issuer.VerifyAccess(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, access.RoleTutor, claims.Role)

	_, err = svc.Register(ctx, RegisterInput{FullName: "Dup", Email: "ada@example.com", Password: "another-pass", Role: access.RoleStudent})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, "ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)

	pair, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.Refresh(ctx, res.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for _, email := range []string{"nope", "", "   ", "two words@example.com", "ada@"} {
		_, err := svc.Register(ctx, RegisterInput{FullName: "X", Email: email, Password: "long-enough", Role: access.RoleStudent})
		assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
	}

	reg, err := svc.Register(ctx, RegisterInput{FullName: "Grace", Email: "  Grace@Example.ORG\t", Password: "long-enough", Role: access.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.org", reg.User.Email)

	_, err = svc.Register(ctx, RegisterInput{FullName: "X", Email: "x@y.io", Password: "short", Role: access.RoleStudent})
	assert.ErrorIs(t, err, user.ErrInvalidPassword)

	_, err = svc.Register(ctx, RegisterInput{FullName: "X", Email: "x@y.io", Password: "long-enough", Role: "admin"})
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}

func TestGoogleSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	svc.google = googleVerifierFunc(func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "good" {
			return nil, errors.New("bad signature")
		}
		return &idtoken.Payload{
			Audience: audience,
			Subject:  "google-sub-1",
			Claims: map[string]interface{}{
				"email":          "grace@example.com",
				"email_verified": true,
				"name":           "Grace Hopper",
			},
		}, nil
	})

	first, err := svc.Google(ctx, "good", access.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", first.User.FullName)
	assert.Equal(t, access.RoleStudent, first.User.Role)

	again, err := svc.Google(ctx, "good", access.RoleTutor)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID, "existing account is reused")
	assert.Equal(t, access.RoleStudent, again.User.Role, "role is fixed at creation")

	_, err = svc.Google(ctx, "forged", access.RoleStudent)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Login(ctx, "grace@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "google-only accounts have no password")
}

func TestGoogleDisabledWithoutClientID(t *testing.T) {
	svc := newService(t)
	svc.googleClientID = ""

	_, err := svc.Google(context.Background(), "anything", access.RoleStudent)
	assert.ErrorIs(t, err, ErrGoogleDisabled)
}

func TestRegisterHandler(t *testing.T) {
	svc := newService(t)
	r := gin.New()
	r.Use(request.Handler(logger.Discard()))
	RegisterRoutes(r.Group(""), NewHandler(svc, logger.Discard()))

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"fullName":"Ada Lovelace","email":" Ada@Example.com ","password":"correct-horse","userType":"student"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ada@example.com", created.Data.User.Email)

	assert.Equal(t, http.StatusConflict, post(`{"fullName":"Ada","email":"ada@example.com","password":"correct-horse","userType":"tutor"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"fullName":"Ada","email":"not-an-address","password":"correct-horse","userType":"tutor"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"fullName":"   ","email":"blank@example.com","password":"correct-horse","userType":"tutor"}`).Code)
}
