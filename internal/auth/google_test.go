package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	sharedauth "github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

func newGoogleRouter(t *testing.T, profile googleProfile, exchangeErr error) (*gin.Engine, *users.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := users.NewMemoryRepo()
	svc := NewGoogleService("id", "secret", "http://localhost/cb", "http://ui.local/", users.NewService(repo), sharedauth.NewSessions("test-secret"))
	svc.exchange = func(ctx context.Context, code string) (googleProfile, error) {
		return profile, exchangeErr
	}
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api"))
	return r, repo
}

func callbackRequest(state, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=c&state="+state, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
	}
	return req
}

func TestGoogleStartRequiresConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGoogleService("", "", "", "", nil, nil).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGoogleStartSetsStateCookie(t *testing.T) {
	r, _ := newGoogleRouter(t, googleProfile{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google/start", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	if len(state) != 32 || !strings.Contains(w.Header().Get("Location"), "state="+state) {
		t.Fatalf("expected state cookie to match redirect, cookie %q location %q", state, w.Header().Get("Location"))
	}
}

func TestGoogleCallbackRejectsStateMismatch(t *testing.T) {
	r, _ := newGoogleRouter(t, googleProfile{Email: "a@b.c", VerifiedEmail: true}, nil)
	for _, req := range []*http.Request{callbackRequest("x", ""), callbackRequest("x", "y")} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusFound || w.Header().Get("Location") != "http://ui.local?error=invalid_state" {
			t.Fatalf("expected redirect with invalid_state, got %d %q", w.Code, w.Header().Get("Location"))
		}
	}
}

func TestGoogleCallbackSignsInVerifiedUser(t *testing.T) {
	r, repo := newGoogleRouter(t, googleProfile{Email: "anna@salon.ru", VerifiedEmail: true, Name: "Анна"}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("s1", "s1"))

	if w.Code != http.StatusFound || w.Header().Get("Location") != "http://ui.local" {
		t.Fatalf("expected redirect to ui, got %d %q", w.Code, w.Header().Get("Location"))
	}
	var session bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sharedauth.CookieAuthJS && c.Value != "" {
			session = true
		}
	}
	if !session {
		t.Fatalf("expected session cookie")
	}
	user, err := repo.GetByEmail(context.Background(), "anna@salon.ru")
	if err != nil || user.Role != users.RoleAdmin || user.Name != "Анна" {
		t.Fatalf("expected upserted admin, got %+v %v", user, err)
	}
}

func TestGoogleCallbackRejectsUnverifiedEmail(t *testing.T) {
	r, repo := newGoogleRouter(t, googleProfile{Email: "anna@salon.ru"}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("s1", "s1"))
	if w.Header().Get("Location") != "http://ui.local?error=email_unverified" {
		t.Fatalf("unexpected location %q", w.Header().Get("Location"))
	}
	if _, err := repo.GetByEmail(context.Background(), "anna@salon.ru"); err == nil {
		t.Fatalf("unverified user must not be created")
	}
}

func TestGoogleCallbackExchangeFailure(t *testing.T) {
	r, _ := newGoogleRouter(t, googleProfile{}, errors.New("bad code"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, callbackRequest("s1", "s1"))
	if w.Header().Get("Location") != "http://ui.local?error=google_failed" {
		t.Fatalf("unexpected location %q", w.Header().Get("Location"))
	}
}
