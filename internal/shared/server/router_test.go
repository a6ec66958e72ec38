package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/services/health"
	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/config"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Sessions) {
	t.Helper()
	sessions := auth.NewSessions("test-secret")
	r := NewRouter(RouterDeps{
		Config:   config.Config{AuthSecret: "test-secret"},
		Sessions: sessions,
		Health:   health.NewService(nil),
		Users:    users.NewHandler(users.NewService(users.NewMemoryRepo())),
	})
	return r, sessions
}

func TestHealthReportsMemoryStorage(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body health.Status
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Database != "memory" {
		t.Fatalf("unexpected status %+v", body)
	}
}

func TestMeRequiresSession(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMeReturnsSessionIdentity(t *testing.T) {
	r, sessions := newTestRouter(t)
	token, err := sessions.Mint(auth.CookieNextAuth, auth.Identity{UserID: "u-1", Name: "Анна", Email: "anna@salon.ru", Role: users.RoleAdmin})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieNextAuth, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "u-1" || body["email"] != "anna@salon.ru" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRateGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		method string
		route  string
		path   string
		want   string
	}{
		{http.MethodPost, "/api/chats/:id/stream", "/api/chats/c1/stream", rateGroupAnalyze},
		{http.MethodPost, "/api/calls/:id/analyze", "/api/calls/c1/analyze", rateGroupAnalyze},
		{http.MethodPost, "/api/testing/cases", "/api/testing/cases", rateGroupAnalyze},
		{http.MethodPost, "/api/admin-cards", "/api/admin-cards", rateGroupAnalyze},
		{http.MethodPatch, "/api/admin-cards/:id/share", "/api/admin-cards/x/share", rateGroupRead},
		{http.MethodGet, "/api/testing/results", "/api/testing/results", rateGroupRead},
		{http.MethodPost, "/api/chats", "/api/chats", rateGroupRead},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			r := gin.New()
			var got string
			r.Handle(tt.method, tt.route, func(c *gin.Context) { got = rateGroup(c) })
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))
			if got != tt.want {
				t.Fatalf("rateGroup = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	for port, want := range map[string]string{"": ":8080", "3000": ":3000", ":9000": ":9000"} {
		if got := Addr(port); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", port, got, want)
		}
	}
}
