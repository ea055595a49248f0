package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/gocomet/parcel-pickup/internal/service/auth"
	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/gocomet/parcel-pickup/pkg/logger"
)

const userKey = "current_user"

// Authenticator resolves a bearer token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// Auth rejects requests without a valid bearer token
func Auth(authn Authenticator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abort(c, apperrors.ErrInvalidToken)
			return
		}

		u, err := authn.Authenticate(c.Request.Context(), token)
		if errors.Is(err, auth.ErrInvalidToken) {
			abort(c, apperrors.ErrInvalidToken)
			return
		}
		if err != nil {
			log.Error("Failed to authenticate request", logger.Err(err))
			abort(c, apperrors.Internal("An unexpected error occurred", err))
			return
		}

		c.Set(userKey, u)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and never rejects
func OptionalAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if u, err := authn.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userKey, u)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok
}

// SetUser attaches u to the request context
func SetUser(c *gin.Context, u *user.User) {
	c.Set(userKey, u)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.Status, appErr)
}
