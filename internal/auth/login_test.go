package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	sharedauth "github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

func newLoginRouter(t *testing.T, secret string) (*gin.Engine, *users.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := users.NewMemoryRepo()
	_ = repo.Create(context.Background(), users.User{
		ID:           "u1",
		Email:        "olga@salon.ru",
		Name:         "Ольга",
		Role:         users.RoleAdmin,
		PasswordHash: sharedauth.LegacyHash("secret"),
	})
	r := gin.New()
	NewLoginHandler(users.NewService(repo), sharedauth.NewSessions(secret)).RegisterRoutes(r.Group("/api"))
	return r, repo
}

func postLogin(r *gin.Engine, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsSessionCookie(t *testing.T) {
	r, repo := newLoginRouter(t, "test-secret")

	w := postLogin(r, `{"email":"olga@salon.ru","password":"secret"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cookie := findCookie(w, sharedauth.CookieAuthJS)
	if cookie == nil || !cookie.HttpOnly || cookie.Path != "/" {
		t.Fatalf("expected plain session cookie, got %+v", cookie)
	}
	if cookie.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("unexpected max age %d", cookie.MaxAge)
	}
	id, err := sharedauth.NewSessions("test-secret").Decode(sharedauth.CookieAuthJS, cookie.Value)
	if err != nil || id.UserID != "u1" || id.Role != users.RoleAdmin {
		t.Fatalf("cookie does not decode: %+v %v", id, err)
	}
	stored, _ := repo.GetByID(context.Background(), "u1")
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("legacy hash was not upgraded")
	}
}

func TestLoginBehindTLSProxyUsesSecureCookie(t *testing.T) {
	r, _ := newLoginRouter(t, "test-secret")

	w := postLogin(r, `{"email":"olga@salon.ru","password":"secret"}`, map[string]string{"X-Forwarded-Proto": "https"})
	cookie := findCookie(w, sharedauth.CookieSecureAuthJS)
	if cookie == nil || !cookie.Secure {
		t.Fatalf("expected secure cookie, got %+v", w.Result().Cookies())
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r, _ := newLoginRouter(t, "test-secret")
	if w := postLogin(r, `{"email":"olga@salon.ru","password":"nope"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLoginWithoutSecret(t *testing.T) {
	r, _ := newLoginRouter(t, "")
	if w := postLogin(r, `{"email":"olga@salon.ru","password":"secret"}`, nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestLogoutClearsAllCookies(t *testing.T) {
	r, _ := newLoginRouter(t, "test-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/logout", nil))

	for _, name := range sharedauth.CookieNames {
		c := findCookie(w, name)
		if c == nil || c.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
}
