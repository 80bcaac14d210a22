package app

import (
	"github.com/bekzodm/taskhub/internal/auth"
	"github.com/bekzodm/taskhub/internal/handlers"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the token service.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	accessTTL := c.JWT.AccessTTL
	if accessTTL <= 0 {
		accessTTL = auth.DefaultAccessTokenTTL
	}
	refreshTTL := c.JWT.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTokenTTL
	}

	return auth.TokenConfig{
		AccessSecret:  c.JWT.AccessSecret,
		RefreshSecret: c.JWT.RefreshSecret,
		Issuer:        c.JWT.Issuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// HandlerCookieSettings converts AuthConfig into the cookie parameters used by handlers.
func (c AuthConfig) HandlerCookieSettings() handlers.CookieSettings {
	return handlers.CookieSettings{
		Domain:     c.Cookie.Domain,
		Secure:     c.Cookie.Secure,
		AccessTTL:  c.JWT.AccessTTL,
		RefreshTTL: c.JWT.RefreshTTL,
	}
}
