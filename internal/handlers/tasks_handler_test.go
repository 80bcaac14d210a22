package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/bekzodm/taskhub/internal/auth"
	"github.com/bekzodm/taskhub/internal/database/testutil"
	"github.com/bekzodm/taskhub/internal/middleware"
	"github.com/bekzodm/taskhub/internal/models"
	"github.com/bekzodm/taskhub/internal/services"
)

func newTaskRouter(t *testing.T) (*gin.Engine, *http.Cookie, *http.Cookie) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	owner := models.User{Name: "Owner", Email: "owner@example.com", Password: "hash", Role: "USER"}
	require.NoError(t, db.Create(&owner).Error)
	other := models.User{Name: "Other", Email: "other@example.com", Password: "hash", Role: "USER"}
	require.NoError(t, db.Create(&other).Error)

	tasks, err := services.NewTaskService(db)
	require.NoError(t, err)

	handler := NewTaskHandler(tasks)

	r := gin.New()
	api := r.Group("/api/tasks", middleware.Authenticate(tokens, true))
	api.POST("", handler.Create)
	api.GET("", handler.List)
	api.GET("/:id", handler.Get)
	api.PUT("/:id", handler.Update)
	api.DELETE("/:id", handler.Delete)

	ownerToken, err := tokens.SignAccessToken(owner.ID, iauth.RoleUser)
	require.NoError(t, err)
	otherToken, err := tokens.SignAccessToken(other.ID, iauth.RoleUser)
	require.NoError(t, err)

	return r,
		&http.Cookie{Name: middleware.AccessTokenCookie, Value: ownerToken},
		&http.Cookie{Name: middleware.AccessTokenCookie, Value: otherToken}
}

func TestTaskCreateAndOwnershipOverHTTP(t *testing.T) {
	r, owner, other := newTaskRouter(t)

	w := postJSON(t, r, "/api/tasks", gin.H{"title": "Ship release", "priority": "High"}, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "Todo")

	// The other user cannot see the owner's task.
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil)
	req.AddCookie(other)
	denied := httptest.NewRecorder()
	r.ServeHTTP(denied, req)
	require.Equal(t, http.StatusNotFound, denied.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil)
	req.AddCookie(owner)
	found := httptest.NewRecorder()
	r.ServeHTTP(found, req)
	require.Equal(t, http.StatusOK, found.Code)
	require.Contains(t, found.Body.String(), "Ship release")
}

func TestTaskListRejectsBadDateFilter(t *testing.T) {
	r, owner, _ := newTaskRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?from=yesterday", nil)
	req.AddCookie(owner)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskListPaginationMeta(t *testing.T) {
	r, owner, _ := newTaskRouter(t)

	for _, title := range []string{"one", "two", "three"} {
		w := postJSON(t, r, "/api/tasks", gin.H{"title": title, "priority": "Low"}, owner)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?page=1&limit=2", nil)
	req.AddCookie(owner)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"meta"`)
	require.Contains(t, w.Body.String(), `"total":3`)
}
