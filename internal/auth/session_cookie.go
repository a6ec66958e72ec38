package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	sharedauth "github.com/seregajade-png/analysis-beauty/internal/shared/auth"
)

// isSecureRequest reports whether the client reached us over HTTPS, either
// directly or through a TLS-terminating proxy.
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func sessionCookieName(r *http.Request) string {
	if isSecureRequest(r) {
		return sharedauth.CookieSecureAuthJS
	}
	return sharedauth.CookieAuthJS
}

// issueSession mints a token for id and sets it as the session cookie.
func issueSession(c *gin.Context, sessions *sharedauth.Sessions, id sharedauth.Identity) error {
	name := sessionCookieName(c.Request)
	token, err := sessions.Mint(name, id)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sharedauth.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   isSecureRequest(c.Request),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearSessions expires every accepted session cookie name.
func clearSessions(c *gin.Context) {
	for _, name := range sharedauth.CookieNames {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   strings.HasPrefix(name, "__Secure-"),
			SameSite: http.SameSiteLaxMode,
		})
	}
}
