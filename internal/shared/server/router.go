package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/admincards"
	googleauth "github.com/seregajade-png/analysis-beauty/internal/auth"
	"github.com/seregajade-png/analysis-beauty/internal/calls"
	"github.com/seregajade-png/analysis-beauty/internal/catalog"
	"github.com/seregajade-png/analysis-beauty/internal/chats"
	"github.com/seregajade-png/analysis-beauty/internal/services/health"
	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/config"
	"github.com/seregajade-png/analysis-beauty/internal/shared/metrics"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/middleware"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/skilltests"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

const (
	rateGroupAnalyze = "ANALYZE"
	rateGroupRead    = "READ"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config     config.Config
	Sessions   *auth.Sessions
	Health     *health.Service
	Login      *googleauth.LoginHandler
	GoogleAuth *googleauth.GoogleService
	Users      *users.Handler
	Chats      *chats.Handler
	Calls      *calls.Handler
	SkillTests *skilltests.Handler
	Catalog    *catalog.Handler
	AdminCards *admincards.Handler
	// RateLimits overrides the default per-user limits.
	RateLimits map[string]middleware.RateLimitRule
}

// DefaultRateLimits allow bursts of reads and a few model calls per minute.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupAnalyze: {Rate: 0.2, Burst: 5},
		rateGroupRead:    {Rate: 5, Burst: 20},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	public := r.Group("/api")
	public.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	if deps.Login != nil {
		deps.Login.RegisterRoutes(public)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(public)
	}
	if deps.AdminCards != nil {
		deps.AdminCards.RegisterPublicRoutes(public)
	}

	sessions := deps.Sessions
	if sessions == nil {
		sessions = auth.NewSessions(deps.Config.AuthSecret)
	}
	limits := deps.RateLimits
	if limits == nil {
		limits = DefaultRateLimits()
	}
	api := r.Group("/api")
	api.Use(
		middleware.Auth(sessions),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        limits,
			DefaultGroup: rateGroupRead,
			GroupFor:     rateGroup,
		}),
	)
	if deps.Users != nil {
		deps.Users.RegisterRoutes(api)
	}
	if deps.Chats != nil {
		deps.Chats.RegisterRoutes(api)
	}
	if deps.Calls != nil {
		deps.Calls.RegisterRoutes(api)
	}
	if deps.SkillTests != nil {
		deps.SkillTests.RegisterRoutes(api)
	}
	if deps.Catalog != nil {
		deps.Catalog.RegisterRoutes(api)
	}
	if deps.AdminCards != nil {
		deps.AdminCards.RegisterRoutes(api)
	}

	return r
}

// rateGroup puts every request that reaches the model into the analyze group.
func rateGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupRead
	}
	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/stream"), strings.HasSuffix(path, "/analyze"):
		return rateGroupAnalyze
	case strings.HasPrefix(path, "/api/testing/"), path == "/api/admin-cards":
		return rateGroupAnalyze
	default:
		return rateGroupRead
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
