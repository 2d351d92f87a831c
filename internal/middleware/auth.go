package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/access"
	"github.com/iamabdullah-dev/EdTech/internal/utils/jwt"
	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
	"github.com/iamabdullah-dev/EdTech/pkg/response"
)

const (
	identityKey = "identity"
	userIDKey   = "userId"
)

// ErrUnknownUser is returned by an IdentityResolver when the token's user no
// longer exists or was deactivated.
var ErrUnknownUser = errors.New("user not found or inactive")

// IdentityResolver confirms that a token's subject is still a live account and
// returns its current identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claimed access.Identity) (access.Identity, error)
}

// Auth builds authentication middleware around a token issuer.
type Auth struct {
	issuer   *jwt.Issuer
	resolver IdentityResolver
	logger   *slog.Logger
}

// NewAuth creates the auth middleware set.
func NewAuth(issuer *jwt.Issuer, resolver IdentityResolver, logger *slog.Logger) *Auth {
	return &Auth{issuer: issuer, resolver: resolver, logger: logger}
}

// Authenticate requires a valid bearer token and stores the identity on the context.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.authenticate(c); !ok {
			return
		}
		c.Next()
	}
}

// Optional stores the identity when a valid token is present and continues
// anonymously otherwise.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := a.issuer.VerifyAccess(token); err == nil {
				if id, err := a.resolver.ResolveIdentity(c.Request.Context(), claims.Identity()); err == nil {
					SetIdentity(c, id)
				}
			}
		}
		c.Next()
	}
}

// RequireRoles authenticates and then checks the identity's role.
func (a *Auth) RequireRoles(roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := a.authenticate(c)
		if !ok {
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "Access denied: insufficient permissions", apperrors.ErrForbidden)
	}
}

// Identity returns the authenticated identity set by this middleware.
func Identity(c *gin.Context) (access.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return access.Identity{}, false
	}
	id, ok := v.(access.Identity)
	return id, ok
}

// OptionalIdentity returns a pointer to the identity, or nil for anonymous callers.
func OptionalIdentity(c *gin.Context) *access.Identity {
	if id, ok := Identity(c); ok {
		return &id
	}
	return nil
}

func (a *Auth) authenticate(c *gin.Context) (access.Identity, bool) {
	if id, ok := Identity(c); ok {
		return id, true
	}

	token := bearerToken(c)
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "No token provided", apperrors.ErrUnauthorized)
		return access.Identity{}, false
	}

	claims, err := a.issuer.VerifyAccess(token)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, jwt.ErrExpiredToken) {
			msg = "Token expired"
		}
		response.Error(c, http.StatusUnauthorized, msg, apperrors.ErrUnauthorized)
		return access.Identity{}, false
	}

	id, err := a.resolver.ResolveIdentity(c.Request.Context(), claims.Identity())
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			response.Error(c, http.StatusUnauthorized, "User not found", apperrors.ErrUnauthorized)
		} else {
			response.ErrorWithLog(a.logger, c, http.StatusInternalServerError, "Internal server error", err)
		}
		return access.Identity{}, false
	}

	SetIdentity(c, id)
	return id, true
}

// SetIdentity stores id as the request's acting identity.
func SetIdentity(c *gin.Context, id access.Identity) {
	c.Set(identityKey, id)
	c.Set(userIDKey, id.UserID)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
