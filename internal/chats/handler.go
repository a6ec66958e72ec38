package chats

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/middleware"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/sse"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the chats service.
type Handler struct {
	Svc     *Service
	Decoder *analysis.Decoder
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, decoder *analysis.Decoder) *Handler {
	return &Handler{Svc: svc, Decoder: decoder}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chats/stream", h.stream)
	rg.POST("/chats/analyze", h.analyze)
	rg.GET("/chats", h.list)
	rg.GET("/chats/:id", h.get)
}

// decodeAndCreate validates the submission and creates the record. It
// writes the error response itself and returns false on failure.
func (h *Handler) decodeAndCreate(c *gin.Context) (Chat, bool) {
	userID := middleware.UserIDFromContext(c)
	in, err := h.Decoder.Decode(c.Request, userID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrInvalidInput), errors.Is(err, analysis.ErrUnsupportedSource):
			respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(err), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to store attachments", nil)
		}
		return Chat{}, false
	}
	in.AdminName = analysis.AdminNameOr(in.AdminName, middleware.IdentityFromContext(c).Name)
	chat, err := h.Svc.Create(c.Request.Context(), userID, in)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create analysis", nil)
		return Chat{}, false
	}
	middleware.TagAnalysis(c, chat.ID, string(analysis.KindChat))
	return chat, true
}

func (h *Handler) stream(c *gin.Context) {
	ctx := analysis.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	c.Request = c.Request.WithContext(ctx)

	chat, ok := h.decodeAndCreate(c)
	if !ok {
		return
	}

	sse.PrepareHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	c.Writer.Flush()

	stream := h.Svc.Stream(ctx, chat)
	if _, err := stream.Deliver(c.Writer, c.Writer.Flush, ctx.Done()); err != nil {
		telemetry.Warn("analysis.client_gone", map[string]any{
			"request_id":  middleware.RequestIDFromContext(c),
			"analysis_id": chat.ID,
			"kind":        string(analysis.KindChat),
			"error":       err,
		})
	}
}

func (h *Handler) analyze(c *gin.Context) {
	ctx := analysis.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	c.Request = c.Request.WithContext(ctx)

	chat, ok := h.decodeAndCreate(c)
	if !ok {
		return
	}
	outcome := h.Svc.Analyze(ctx, chat)
	if outcome.Failed() {
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", outcome.Message, gin.H{"id": chat.ID})
		return
	}
	if stored, err := h.Svc.Get(ctx, chat.UserID, chat.ID); err == nil {
		chat = stored
	}
	respond.Success(c, gin.H{
		"analysis": chat,
		"result":   outcome.Result,
	})
}

func (h *Handler) get(c *gin.Context) {
	chatID := c.Param("id")
	if chatID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id is required", nil)
		return
	}
	chat, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), chatID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Анализ не найден", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}
	respond.OK(c, chat)
}

func (h *Handler) list(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	chats, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	resp := make([]gin.H, 0, len(chats))
	for _, ch := range chats {
		resp = append(resp, gin.H{
			"id":           ch.ID,
			"adminName":    ch.AdminName,
			"title":        ch.Title,
			"source":       ch.Source,
			"status":       ch.Status,
			"overallScore": ch.OverallScore,
			"createdAt":    ch.CreatedAt,
		})
	}
	respond.OK(c, resp)
}
