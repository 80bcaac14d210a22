package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, clock func() time.Time) *TokenService {
	t.Helper()

	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "taskhub",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Clock:         clock,
	})
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRequiresSecrets(t *testing.T) {
	_, err := NewTokenService(TokenConfig{RefreshSecret: "r"})
	require.EqualError(t, err, "token: access secret must be provided")

	_, err = NewTokenService(TokenConfig{AccessSecret: "a"})
	require.EqualError(t, err, "token: refresh secret must be provided")

	_, err = NewTokenService(TokenConfig{AccessSecret: "same", RefreshSecret: "same"})
	require.EqualError(t, err, "token: access and refresh secrets must differ")
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return current })

	token, err := svc.SignAccessToken(42, RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "ADMIN", claims.Role)
	require.Equal(t, "taskhub", claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return current })

	refresh, err := svc.SignRefreshToken(7, RoleUser)
	require.NoError(t, err)

	// A refresh token must never pass access verification, and vice versa.
	_, err = svc.VerifyAccessToken(refresh)
	require.ErrorIs(t, err, ErrTokenMalformed)

	access, err := svc.SignAccessToken(7, RoleUser)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(access)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	current := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	issuer := newTestService(t, clock)

	verifier, err := NewTokenService(TokenConfig{
		AccessSecret:  "different-access",
		RefreshSecret: "different-refresh",
		AccessTTL:     time.Minute,
		Clock:         clock,
	})
	require.NoError(t, err)

	token, err := issuer.SignAccessToken(9, RoleUser)
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyExpiredToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return current })

	token, err := svc.SignAccessToken(5, RoleModerator)
	require.NoError(t, err)

	// Move time past the access TTL.
	current = current.Add(2 * time.Hour)

	_, err = svc.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.VerifyAccessToken("")
	require.ErrorIs(t, err, ErrTokenMalformed)

	_, err = svc.VerifyAccessToken("not.a.jwt")
	require.ErrorIs(t, err, ErrTokenMalformed)
}
