package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sharedauth "github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

// LoginHandler serves credential login and logout.
type LoginHandler struct {
	Users    *users.Service
	Sessions *sharedauth.Sessions
}

// NewLoginHandler builds a LoginHandler.
func NewLoginHandler(usersSvc *users.Service, sessions *sharedauth.Sessions) *LoginHandler {
	return &LoginHandler{Users: usersSvc, Sessions: sessions}
}

// RegisterRoutes attaches the public login routes.
func (h *LoginHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *LoginHandler) login(c *gin.Context) {
	if !h.Sessions.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "AUTH_SECRET не настроен", nil)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Неверный запрос", nil)
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Неверный email или пароль", nil)
			return
		}
		telemetry.Error("auth.login_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Внутренняя ошибка сервера", nil)
		return
	}

	if err := issueSession(c, h.Sessions, user.Identity()); err != nil {
		telemetry.Error("auth.session_mint_failed", map[string]any{"user_id": user.ID, "error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Внутренняя ошибка сервера", nil)
		return
	}
	telemetry.Info("auth.login", map[string]any{"user_id": user.ID})
	respond.Success(c, gin.H{"user": user.Identity()})
}

func (h *LoginHandler) logout(c *gin.Context) {
	clearSessions(c)
	respond.Success(c, nil)
}
