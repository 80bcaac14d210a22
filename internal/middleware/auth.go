package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/bekzodm/taskhub/internal/auth"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/response"
)

// Context keys populated by Authenticate.
const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"

	// AccessTokenCookie is the cookie the frontend carries the access token in.
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie carries the refresh token for the refresh endpoint only.
	RefreshTokenCookie = "refreshToken"
)

// Authenticate resolves the caller's identity from the access token. The token
// is read from the accessToken cookie first, then from a Bearer header.
//
// Public routes never inspect the token: the caller proceeds anonymous with
// the USER role, even when a broken token is attached. On protected routes a
// missing token is a bad request, an expired token is forbidden and an
// unparseable or forged token is a conflict; anything else is an internal
// failure with no internals leaked.
func Authenticate(tokens *iauth.TokenService, protected bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !protected {
			setAnonymous(c)
			c.Next()
			return
		}

		raw := tokenFromRequest(c)
		if raw == "" {
			response.Error(c, apperrors.ErrMissingCredentials)
			c.Abort()
			return
		}

		claims, err := tokens.VerifyAccessToken(raw)
		if err != nil {
			response.Error(c, classifyTokenError(err))
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxRoleKey, iauth.NormalizeRole(claims.Role))
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authz := c.GetHeader("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, iauth.ErrTokenExpired):
		return apperrors.ErrCredentialsExpired
	case errors.Is(err, iauth.ErrTokenMalformed):
		return apperrors.ErrInvalidToken
	default:
		return apperrors.ErrInternalAuthFailure.WithInternal(err)
	}
}

func setAnonymous(c *gin.Context) {
	c.Set(CtxUserIDKey, uint(0))
	c.Set(CtxRoleKey, iauth.RoleUser)
}

// UserID returns the authenticated user id stored by Authenticate.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// RoleFromContext returns the caller's role, defaulting to USER when unset.
func RoleFromContext(c *gin.Context) (iauth.Role, bool) {
	v, ok := c.Get(CtxRoleKey)
	if !ok {
		return iauth.RoleUser, false
	}
	role, ok := v.(iauth.Role)
	if !ok {
		return iauth.RoleUser, false
	}
	return role, true
}
