package security

import (
	"net/http"
	"time"
)

// Cookie and header names shared between handlers and middleware. AT/RT keep
// the names the web client already uses.
const (
	AccessTokenCookie  = "AT"
	RefreshTokenCookie = "RT"
	TokenIDHeader      = "X-Token-Id"
)

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetAccessTokenCookie installs the short-lived access-token cookie. Lax so
// top-level navigations still carry it.
func SetAccessTokenCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	})
}

// SetRefreshTokenCookie installs the long-lived refresh-secret cookie.
// Strict: the refresh endpoint is only ever called same-site.
func SetRefreshTokenCookie(w http.ResponseWriter, raw string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    raw,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl / time.Second),
	})
}

// ExpireCookie clears a cookie with the same path the setters use.
func ExpireCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		MaxAge:   -1,
	})
}
