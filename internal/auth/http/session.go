package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/makerden/memberauth/internal/auth/service"
	"github.com/makerden/memberauth/pkg/jwtx"
)

const sessionCookieName = "member_session"

// SessionResolver reads and verifies the signed member-session cookie. The
// login surface that mints the cookie lives outside this service; here the
// cookie is only verified and, when re-authentication is forced, cleared.
type SessionResolver struct {
	Verifier *jwtx.ES512Verifier
}

// Resolve returns the authenticated session behind r, or nil when no valid
// session cookie is present.
func (s *SessionResolver) Resolve(r *http.Request) *service.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	var claims jwtx.SessionClaims
	if err := s.Verifier.Verify(cookie.Value, &claims); err != nil {
		return nil
	}
	if claims.Subject == "" || claims.AuthTime == 0 {
		return nil
	}

	return &service.Session{
		UserID:   claims.Subject,
		AuthTime: time.Unix(claims.AuthTime, 0),
	}
}

// ClearCookie expires the session cookie.
func (s *SessionResolver) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// loginRedirectURL points the browser at the login page with a continue_to
// back-link so the authorization request resumes after authentication.
func loginRedirectURL(loginURL, continueTo string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	q := u.Query()
	q.Set("continue_to", continueTo)
	u.RawQuery = q.Encode()
	return u.String()
}
