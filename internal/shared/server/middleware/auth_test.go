package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
)

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(auth.NewSessions("secret")))
	router.OPTIONS("/api/chats/stream", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/chats/stream", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(auth.NewSessions("secret")))
	router.GET("/api/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", payload.Error.Code)
	}
}

func TestAuthStoresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := auth.NewSessions("secret")
	token, err := sessions.Mint(auth.CookieAuthJS, auth.Identity{UserID: "u1", Role: "OWNER"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	router := gin.New()
	router.Use(Auth(sessions))
	router.GET("/api/me", func(c *gin.Context) {
		id := IdentityFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "role": id.Role})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieAuthJS, Value: token})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["userId"] != "u1" || payload["role"] != "OWNER" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestForbidRolesBlocksWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		SetIdentity(c, auth.Identity{UserID: "u1", Role: "ADMIN"})
		c.Next()
	})
	router.Use(ForbidRoles("ADMIN"))
	router.GET("/api/settings/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/settings/products", func(c *gin.Context) { c.Status(http.StatusCreated) })

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/settings/products", nil))
	if get.Code != http.StatusOK {
		t.Fatalf("expected GET allowed, got %d", get.Code)
	}

	post := httptest.NewRecorder()
	router.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/settings/products", nil))
	if post.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", post.Code)
	}
}
