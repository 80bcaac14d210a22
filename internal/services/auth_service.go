package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/auth"
	"github.com/bekzodm/taskhub/internal/models"
	"github.com/bekzodm/taskhub/pkg/crypto"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
	"github.com/bekzodm/taskhub/pkg/metrics"
)

// ErrUserAlreadyExists rejects registration when the name or email is taken.
var ErrUserAlreadyExists = apperrors.New("USER_ALREADY_EXISTS", "User is already registered", http.StatusBadRequest)

// TokenPair bundles the freshly issued access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput describes the fields accepted at registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Profile is the caller-facing projection of a user record.
type Profile struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
	Role   string  `json:"role"`
}

// AuthService implements registration, login, token refresh and profile reads.
type AuthService struct {
	db     *gorm.DB
	tokens *auth.TokenService
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, tokens *auth.TokenService) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}
	return &AuthService{db: db, tokens: tokens}, nil
}

// Register creates a new USER account and issues a token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, TokenPair, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, TokenPair{}, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, TokenPair{}, apperrors.NewBadRequest("password is required")
	}

	var existing models.User
	err := s.db.WithContext(ctx).
		Where("name = ? OR email = ?", name, email).
		First(&existing).Error
	switch {
	case err == nil:
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return nil, TokenPair{}, ErrUserAlreadyExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, TokenPair{}, storeFailure("auth service: find existing", err)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     string(auth.RoleUser),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
			return nil, TokenPair{}, ErrUserAlreadyExists
		}
		return nil, TokenPair{}, storeFailure("auth service: create user", err)
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	return &user, pair, nil
}

// Login verifies the credentials and issues a token pair. Unknown email and
// wrong password produce the same classification on purpose.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, TokenPair, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
			return nil, TokenPair{}, apperrors.ErrInvalidCredentials
		}
		return nil, TokenPair{}, storeFailure("auth service: find user", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return nil, TokenPair{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	return &user, pair, nil
}

// Refresh trades a valid refresh token for a new access token. The refresh
// token itself is left untouched; only its claims feed the new access token.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return "", apperrors.ErrCredentialsExpired
		case errors.Is(err, auth.ErrTokenMalformed):
			return "", apperrors.ErrInvalidToken
		default:
			return "", apperrors.ErrInternalAuthFailure.WithInternal(err)
		}
	}

	access, err := s.tokens.SignAccessToken(claims.UserID, auth.NormalizeRole(claims.Role))
	if err != nil {
		return "", apperrors.ErrInternalAuthFailure.WithInternal(err)
	}

	metrics.AuthAttempts.WithLabelValues("refresh", "success").Inc()
	return access, nil
}

// Me returns the caller's profile derived solely from the token subject id.
func (s *AuthService) Me(ctx context.Context, userID uint) (*Profile, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("auth service: find user", err)
	}

	return &Profile{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Avatar: user.Avatar,
		Role:   user.Role,
	}, nil
}

// SetAvatar records the stored avatar path on the user.
func (s *AuthService) SetAvatar(ctx context.Context, userID uint, avatarPath string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storeFailure("auth service: find user", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("avatar", avatarPath).Error; err != nil {
		return nil, storeFailure("auth service: update avatar", err)
	}

	user.Avatar = &avatarPath
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (TokenPair, error) {
	role := auth.NormalizeRole(user.Role)

	access, err := s.tokens.SignAccessToken(user.ID, role)
	if err != nil {
		return TokenPair{}, apperrors.ErrInternalAuthFailure.WithInternal(err)
	}

	refresh, err := s.tokens.SignRefreshToken(user.ID, role)
	if err != nil {
		return TokenPair{}, apperrors.ErrInternalAuthFailure.WithInternal(err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
