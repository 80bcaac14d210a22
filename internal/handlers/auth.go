package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bekzodm/taskhub/internal/middleware"
	"github.com/bekzodm/taskhub/internal/models"
	"github.com/bekzodm/taskhub/internal/services"
	appErrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/response"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

// CookieSettings controls how token cookies are written.
type CookieSettings struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler serves registration, login, token refresh and profile endpoints.
// Tokens travel as httpOnly cookies; responses additionally echo them so
// non-browser clients can use the Bearer fallback.
type AuthHandler struct {
	auth      *services.AuthService
	cookies   CookieSettings
	uploadDir string
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, cookies CookieSettings, uploadDir string) *AuthHandler {
	if cookies.AccessTTL <= 0 {
		cookies.AccessTTL = 15 * time.Minute
	}
	if cookies.RefreshTTL <= 0 {
		cookies.RefreshTTL = 7 * 24 * time.Hour
	}
	if uploadDir == "" {
		uploadDir = filepath.Join("uploads", "avatars")
	}
	return &AuthHandler{auth: auth, cookies: cookies, uploadDir: uploadDir}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User   *services.Profile  `json:"user"`
	Tokens services.TokenPair `json:"tokens"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, pair, err := h.auth.Register(requestContext(c), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.writeTokenCookies(c, pair)
	response.Success(c, http.StatusCreated, authResponse{User: toProfile(user), Tokens: pair})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, pair, err := h.auth.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.writeTokenCookies(c, pair)
	response.Success(c, http.StatusOK, authResponse{User: toProfile(user), Tokens: pair})
}

// POST /api/auth/refresh
//
// The refresh token is read exclusively from its cookie. Access tokens are
// never accepted here; the two kinds are signed with different secrets.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || refresh == "" {
		response.Error(c, appErrors.ErrMissingRefreshToken)
		return
	}

	access, err := h.auth.Refresh(refresh)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.writeCookie(c, middleware.AccessTokenCookie, access, h.cookies.AccessTTL)
	response.Success(c, http.StatusOK, gin.H{"access_token": access})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.writeCookie(c, middleware.AccessTokenCookie, "", -time.Second)
	h.writeCookie(c, middleware.RefreshTokenCookie, "", -time.Second)
	response.SuccessWithMessage(c, http.StatusOK, "Logged out", nil)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.auth.Me(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// POST /api/auth/avatar
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("avatar file is required"))
		return
	}
	if file.Size > maxAvatarBytes {
		response.Error(c, appErrors.NewBadRequest("avatar must not exceed 5MB"))
		return
	}
	if !isImageUpload(file) {
		response.Error(c, appErrors.NewBadRequest("avatar must be an image"))
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		response.Error(c, appErrors.Wrap(err, "could not store avatar"))
		return
	}

	name := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(file.Filename)))
	dest := filepath.Join(h.uploadDir, name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		response.Error(c, appErrors.Wrap(err, "could not store avatar"))
		return
	}

	user, err := h.auth.SetAvatar(requestContext(c), userID, "/"+filepath.ToSlash(dest))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, toProfile(user))
}

func isImageUpload(file *multipart.FileHeader) bool {
	return strings.HasPrefix(file.Header.Get("Content-Type"), "image/")
}

func (h *AuthHandler) writeTokenCookies(c *gin.Context, pair services.TokenPair) {
	h.writeCookie(c, middleware.AccessTokenCookie, pair.AccessToken, h.cookies.AccessTTL)
	h.writeCookie(c, middleware.RefreshTokenCookie, pair.RefreshToken, h.cookies.RefreshTTL)
}

func (h *AuthHandler) writeCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func toProfile(user *models.User) *services.Profile {
	if user == nil {
		return nil
	}
	return &services.Profile{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Avatar: user.Avatar,
		Role:   user.Role,
	}
}
