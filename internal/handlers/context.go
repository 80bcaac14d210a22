package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/bekzodm/taskhub/internal/middleware"
	appErrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID extracts the authenticated user id, writing an error response
// when the request reached a handler without one.
func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredentials)
		return 0, false
	}
	return id, true
}
