package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/middleware"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches product settings routes. Administrators may read
// the catalog but not change it.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/settings/products", middleware.ForbidRoles(users.RoleAdmin))
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("", h.update)
	g.DELETE("", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	products, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list products", nil)
		return
	}
	respond.OK(c, products)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Неверный запрос", nil)
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, p)
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Неверный запрос", nil)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, p)
}

func (h *Handler) delete(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id обязателен", nil)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond.Success(c, nil)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(err), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Не найдено", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save product", nil)
	}
}
