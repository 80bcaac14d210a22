package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default validity windows applied when the configuration leaves them unset.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrTokenExpired indicates the embedded expiry timestamp has passed.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenMalformed covers unparseable encodings and signature mismatches.
	ErrTokenMalformed = errors.New("token: malformed or forged")
)

// TokenConfig bundles the configuration required to build a TokenService.
// Access and refresh tokens are signed with independent secrets so that one
// kind can never be verified where the other is expected.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenService issues and validates the access/refresh token pair.
type TokenService struct {
	access  signingKey
	refresh signingKey
	issuer  string
	now     func() time.Time
}

// NewTokenService constructs a TokenService from the supplied configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, errors.New("token: access secret must be provided")
	}
	if cfg.RefreshSecret == "" {
		return nil, errors.New("token: refresh secret must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		access:  signingKey{secret: []byte(cfg.AccessSecret), ttl: accessTTL},
		refresh: signingKey{secret: []byte(cfg.RefreshSecret), ttl: refreshTTL},
		issuer:  cfg.Issuer,
		now:     now,
	}, nil
}

// SignAccessToken issues a short-lived token presented on every protected request.
func (s *TokenService) SignAccessToken(userID uint, role Role) (string, error) {
	return s.sign(s.access, userID, role)
}

// SignRefreshToken issues the longer-lived token used solely to mint new access tokens.
func (s *TokenService) SignRefreshToken(userID uint, role Role) (string, error) {
	return s.sign(s.refresh, userID, role)
}

// VerifyAccessToken validates a token against the access secret.
func (s *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(s.access, tokenString)
}

// VerifyRefreshToken validates a token against the refresh secret.
func (s *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(s.refresh, tokenString)
}

func (s *TokenService) sign(key signingKey, userID uint, role Role) (string, error) {
	if userID == 0 {
		return "", errors.New("token: user id is required")
	}

	now := s.now()
	claims := &Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

func (s *TokenService) verify(key signingKey, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return key.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrTokenMalformed
	}
	if claims.UserID == 0 {
		return nil, ErrTokenMalformed
	}

	return &claims, nil
}
