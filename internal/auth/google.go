package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
	"github.com/seregajade-png/analysis-beauty/internal/shared/util"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookie       = "google_oauth_state"
	stateTTL          = 10 * time.Minute
)

// googleProfile is the part of the userinfo response we rely on.
type googleProfile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleService signs salon staff in with their Google account. The OAuth
// state lives in a short-lived cookie so any API instance can finish the
// flow. Failures after Google redirects back land on the dashboard with an
// ?error= code instead of a JSON body.
type GoogleService struct {
	oauth      *oauth2.Config
	uiRedirect string
	users      *users.Service
	sessions   *sharedauth.Sessions
	// exchange trades the code for a profile; replaced in tests.
	exchange func(ctx context.Context, code string) (googleProfile, error)
}

func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, usersSvc *users.Service, sessions *sharedauth.Sessions) *GoogleService {
	s := &GoogleService{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		uiRedirect: strings.TrimRight(uiRedirect, "/"),
		users:      usersSvc,
		sessions:   sessions,
	}
	s.exchange = s.fetchProfile
	return s
}

func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != "" && s.oauth.RedirectURL != ""
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Вход через Google не настроен", nil)
		return
	}
	state := util.RandomHex(16)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   isSecureRequest(c.Request),
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")))
}

func (s *GoogleService) callback(c *gin.Context) {
	expected, _ := c.Cookie(stateCookie)
	http.SetCookie(c.Writer, &http.Cookie{Name: stateCookie, Path: "/api/auth/google", MaxAge: -1})

	if reason := c.Query("error"); reason != "" {
		s.fail(c, "google_denied", reason)
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if code == "" || state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		s.fail(c, "invalid_state", "state mismatch")
		return
	}

	ctx := c.Request.Context()
	profile, err := s.exchange(ctx, code)
	if err != nil {
		s.fail(c, "google_failed", err.Error())
		return
	}
	if profile.Email == "" || !profile.VerifiedEmail {
		s.fail(c, "email_unverified", profile.Email)
		return
	}

	user, err := s.users.UpsertFromGoogle(ctx, profile.Email, profile.Name)
	if err != nil {
		s.fail(c, "internal_error", err.Error())
		return
	}
	if err := issueSession(c, s.sessions, user.Identity()); err != nil {
		s.fail(c, "internal_error", err.Error())
		return
	}
	telemetry.Info("auth.login", map[string]any{"user_id": user.ID, "provider": "google"})
	c.Redirect(http.StatusFound, s.landing(""))
}

// fail sends the browser back to the dashboard with code, or answers with
// JSON when no dashboard URL is configured.
func (s *GoogleService) fail(c *gin.Context, code, detail string) {
	telemetry.Warn("auth.google_failed", map[string]any{"code": code, "detail": detail})
	if s.uiRedirect == "" {
		respond.Error(c, http.StatusBadRequest, code, "Не удалось войти через Google", nil)
		return
	}
	c.Redirect(http.StatusFound, s.landing(code))
}

func (s *GoogleService) landing(errCode string) string {
	target := s.uiRedirect
	if target == "" {
		target = "/"
	}
	if errCode == "" {
		return target
	}
	return target + "?error=" + url.QueryEscape(errCode)
}

func (s *GoogleService) fetchProfile(ctx context.Context, code string) (googleProfile, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return googleProfile{}, fmt.Errorf("exchange code: %w", err)
	}
	resp, err := s.oauth.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return googleProfile{}, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return p, nil
}
