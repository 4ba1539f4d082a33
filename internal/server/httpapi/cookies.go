package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// CookieWriter sets and clears the auth cookie pair. Both cookies are
// HttpOnly and SameSite=Strict; Secure is on in production mode only.
type CookieWriter struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (w CookieWriter) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (w CookieWriter) SetAccess(rw http.ResponseWriter, token string) {
	http.SetCookie(rw, w.cookie(common.AccessTokenCookieName, token, int(w.AccessTTL.Seconds())))
}

func (w CookieWriter) SetPair(rw http.ResponseWriter, access, refresh string) {
	w.SetAccess(rw, access)
	http.SetCookie(rw, w.cookie(common.RefreshTokenCookieName, refresh, int(w.RefreshTTL.Seconds())))
}

// Clear expires both cookies immediately (Max-Age=0 on the wire).
func (w CookieWriter) Clear(rw http.ResponseWriter) {
	http.SetCookie(rw, w.cookie(common.AccessTokenCookieName, "", -1))
	http.SetCookie(rw, w.cookie(common.RefreshTokenCookieName, "", -1))
}
