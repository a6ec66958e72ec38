package admincards

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/shared/server/middleware"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the authenticated card routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin-cards", h.generate)
	rg.GET("/admin-cards", h.list)
	rg.GET("/admin-cards/:id", h.get)
	rg.PATCH("/admin-cards/:id/share", h.share)
}

// RegisterPublicRoutes attaches the shared card route, which needs no session.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin-cards/shared/:token", h.shared)
}

func (h *Handler) generate(c *gin.Context) {
	var in GenerateInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Неверный запрос", nil)
			return
		}
	}
	card, gen, err := h.Svc.Generate(c.Request.Context(), middleware.IdentityFromContext(c), in)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			respond.Error(c, http.StatusForbidden, "forbidden", ErrForbidden.Error(), nil)
			return
		}
		telemetry.Error("admin_card.failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"user_id":    middleware.UserIDFromContext(c),
			"error":      err,
		})
		respond.Error(c, http.StatusInternalServerError, "analysis_error", "Ошибка при генерации карточки", nil)
		return
	}
	respond.Success(c, gin.H{"card": card, "cardData": gen})
}

func (h *Handler) list(c *gin.Context) {
	cards, err := h.Svc.List(c.Request.Context(), middleware.IdentityFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list cards", nil)
		return
	}
	respond.OK(c, cards)
}

func (h *Handler) get(c *gin.Context) {
	card, err := h.Svc.Get(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, card)
}

type shareRequest struct {
	Share *bool `json:"share"`
}

func (h *Handler) share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Share == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "share обязателен", nil)
		return
	}
	res, err := h.Svc.SetShare(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"), *req.Share)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) shared(c *gin.Context) {
	card, err := h.Svc.Shared(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, card)
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", ErrNotFound.Error(), nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load card", nil)
}
