package middleware

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/bekzodm/taskhub/internal/auth"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/metrics"
	"github.com/bekzodm/taskhub/pkg/response"
)

// RequireRoles allows the request through only when the caller's role is in
// the allowed set. The check fails closed: a missing or unreadable role is a
// denial, and an empty allowed set rejects everyone, ADMIN included.
func RequireRoles(allowed ...iauth.Role) gin.HandlerFunc {
	set := make(map[iauth.Role]struct{}, len(allowed))
	for _, role := range allowed {
		set[iauth.NormalizeRole(string(role))] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok {
			metrics.RoleDenials.Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}

		if _, permitted := set[role]; !permitted {
			metrics.RoleDenials.Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
