package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bekzodm/taskhub/internal/auth"
	"github.com/bekzodm/taskhub/internal/database/testutil"
	"github.com/bekzodm/taskhub/internal/models"
	apperrors "github.com/bekzodm/taskhub/pkg/errors"
)

func newAuthService(t *testing.T, db *gorm.DB) (*AuthService, *auth.TokenService) {
	t.Helper()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	svc, err := NewAuthService(db, tokens)
	require.NoError(t, err)
	return svc, tokens
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, tokens := newAuthService(t, db)

	user, pair, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, "USER", user.Role)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "USER", claims.Role)
}

func TestRegisterRejectsDuplicateNameOrEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _ := newAuthService(t, db)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "other@example.com", Password: "secret1",
	})
	require.ErrorIs(t, err, ErrUserAlreadyExists)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		Name: "Someone", Email: "alice@example.com", Password: "secret1",
	})
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginVerifiesPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _ := newAuthService(t, db)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Bob", Email: "bob@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	user, pair, err := svc.Login(context.Background(), "bob@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", user.Email)
	require.NotEmpty(t, pair.AccessToken)

	_, _, err = svc.Login(context.Background(), "bob@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "secret1")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, tokens := newAuthService(t, db)

	user, pair, err := svc.Register(context.Background(), RegisterInput{
		Name: "Carol", Email: "carol@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	access, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := tokens.VerifyAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _ := newAuthService(t, db)

	_, pair, err := svc.Register(context.Background(), RegisterInput{
		Name: "Dave", Email: "dave@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	// The refresh endpoint must not accept access tokens.
	_, err = svc.Refresh(pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRefreshExpiredToken(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Clock:         func() time.Time { return current },
	})
	require.NoError(t, err)

	svc, err := NewAuthService(db, tokens)
	require.NoError(t, err)

	_, pair, err := svc.Register(context.Background(), RegisterInput{
		Name: "Eve", Email: "eve@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	_, err = svc.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrCredentialsExpired)
}

func TestMeProjectsProfile(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _ := newAuthService(t, db)

	user, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Frank", Email: "frank@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	profile, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
	require.Equal(t, "Frank", profile.Name)
	require.Equal(t, "frank@example.com", profile.Email)
	require.Nil(t, profile.Avatar)

	_, err = svc.Me(context.Background(), 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetAvatarUpdatesUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, _ := newAuthService(t, db)

	user, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Grace", Email: "grace@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	updated, err := svc.SetAvatar(context.Background(), user.ID, "/uploads/avatars/avatar-1.png")
	require.NoError(t, err)
	require.NotNil(t, updated.Avatar)
	require.Equal(t, "/uploads/avatars/avatar-1.png", *updated.Avatar)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.NotNil(t, stored.Avatar)
	require.Equal(t, "/uploads/avatars/avatar-1.png", *stored.Avatar)
}
