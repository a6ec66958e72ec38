package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/server/middleware"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me returns the session identity, refreshed from the users store when the
// user still exists there.
func (h *Handler) me(c *gin.Context) {
	id := middleware.IdentityFromContext(c)
	if id.UserID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Не авторизован", nil)
		return
	}
	if h.Svc != nil {
		user, err := h.Svc.GetByID(c.Request.Context(), id.UserID)
		switch {
		case err == nil:
			id = user.Identity()
		case errors.Is(err, ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
			return
		}
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"id":        id.UserID,
		"email":     id.Email,
		"name":      id.Name,
		"role":      id.Role,
		"salonName": id.SalonName,
	})
}
