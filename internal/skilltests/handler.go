package skilltests

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/calls"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
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

// RegisterRoutes attaches skill test routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/testing")
	g.POST("/cases", h.practicalCase)
	g.POST("/roleplay", h.roleplay)
	g.GET("/products", h.products)
	g.POST("/products", h.productKnowledge)
	g.POST("/crm", h.crm)
	g.GET("/results", h.results)
}

func (h *Handler) practicalCase(c *gin.Context) {
	var in CaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(ErrResponseRequired), nil)
		return
	}
	if in.AdminName == "" {
		in.AdminName = middleware.IdentityFromContext(c).Name
	}
	res, err := h.Svc.PracticalCase(c.Request.Context(), middleware.UserIDFromContext(c), in)
	h.reply(c, res, err, "Ошибка при анализе ответа")
}

type roleplayRequest struct {
	ClientPhrase  string `json:"clientPhrase"`
	AdminResponse string `json:"adminResponse"`
	TextResponse  string `json:"textResponse"`
}

func (h *Handler) roleplay(c *gin.Context) {
	in := RoleplayInput{AdminName: middleware.IdentityFromContext(c).Name}
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "multipart/form-data" {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, calls.MaxAudioBytes+(1<<20))
		in.ClientPhrase = c.PostForm("clientPhrase")
		in.Response = c.PostForm("textResponse")
		if fh, err := c.FormFile("audio"); err == nil {
			file, err := fh.Open()
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "Не удалось прочитать аудио", nil)
				return
			}
			defer file.Close()
			in.Audio = &Audio{FileName: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: file}
		}
	} else {
		var req roleplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(ErrRoleplayInput), nil)
			return
		}
		in.ClientPhrase, in.Response = req.ClientPhrase, req.AdminResponse
		if in.Response == "" {
			in.Response = req.TextResponse
		}
	}
	res, err := h.Svc.Roleplay(c.Request.Context(), middleware.UserIDFromContext(c), in)
	h.reply(c, res, err, "Ошибка при анализе ролевой игры")
}

func (h *Handler) products(c *gin.Context) {
	products, err := h.Svc.ActiveProducts(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list products", nil)
		return
	}
	respond.OK(c, products)
}

func (h *Handler) productKnowledge(c *gin.Context) {
	var in ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(ErrProductInput), nil)
		return
	}
	res, err := h.Svc.ProductKnowledge(c.Request.Context(), middleware.UserIDFromContext(c), in)
	h.reply(c, res, err, "Ошибка при анализе теста")
}

type crmRequest struct {
	Answers []llm.QA `json:"answers"`
}

func (h *Handler) crm(c *gin.Context) {
	var req crmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(ErrAnswersRequired), nil)
		return
	}
	res, err := h.Svc.CRMKnowledge(c.Request.Context(), middleware.UserIDFromContext(c), middleware.IdentityFromContext(c).Name, req.Answers)
	h.reply(c, res, err, "Ошибка при анализе теста CRM")
}

func (h *Handler) results(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid limit", nil)
			return
		}
		limit = n
	}
	results, err := h.Svc.Results(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list results", nil)
		return
	}
	respond.OK(c, results)
}

func (h *Handler) reply(c *gin.Context, res Result, err error, failure string) {
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(err), nil)
		case errors.Is(err, ErrProductNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", ErrProductNotFound.Error(), nil)
		default:
			telemetry.Error("skilltest.failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"user_id":    middleware.UserIDFromContext(c),
				"path":       c.Request.URL.Path,
				"error":      err,
			})
			respond.Error(c, http.StatusInternalServerError, "analysis_error", failure, nil)
		}
		return
	}
	respond.Success(c, gin.H{"testResult": res, "result": res.Analysis})
}
