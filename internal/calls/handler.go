package calls

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/middleware"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server/respond"
	"github.com/seregajade-png/analysis-beauty/internal/shared/sse"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// uploadOverhead leaves room for multipart framing and text fields.
const uploadOverhead = 1 << 20

// Handler wires HTTP handlers to the calls service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches call routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calls/upload", h.upload)
	rg.POST("/calls/analyze", h.analyze)
	rg.POST("/calls/stream", h.stream)
	rg.GET("/calls", h.list)
	rg.GET("/calls/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAudioBytes+uploadOverhead)
	fh, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(ErrAudioTooLarge), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "Аудиофайл не предоставлен", nil)
		return
	}
	file, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Аудиофайл не предоставлен", nil)
		return
	}
	defer file.Close()

	call, err := h.Svc.Upload(c.Request.Context(), middleware.UserIDFromContext(c), UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        file,
		AdminName:   analysis.AdminNameOr(c.PostForm("adminName"), middleware.IdentityFromContext(c).Name),
		Title:       c.PostForm("title"),
	})
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", analysis.UserMessage(err), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to store audio", nil)
		}
		return
	}
	middleware.TagAnalysis(c, call.ID, string(analysis.KindCall))
	respond.OK(c, gin.H{"id": call.ID, "message": "Файл загружен успешно"})
}

type analyzeRequest struct {
	AnalysisID string `json:"analysisId"`
}

// loadCall reads {analysisId} and fetches the caller's call. It writes the
// error response itself and returns false on failure.
func (h *Handler) loadCall(c *gin.Context) (Call, bool) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.AnalysisID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysisId обязателен", nil)
		return Call{}, false
	}
	call, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), req.AnalysisID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Анализ не найден", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return Call{}, false
	}
	if call.AudioKey == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Аудиофайл не найден", nil)
		return Call{}, false
	}
	if call.Status.Terminal() {
		respond.Error(c, http.StatusConflict, "conflict", "Анализ уже завершён", gin.H{"status": call.Status})
		return Call{}, false
	}
	middleware.TagAnalysis(c, call.ID, string(analysis.KindCall))
	return call, true
}

func (h *Handler) analyze(c *gin.Context) {
	ctx := analysis.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	c.Request = c.Request.WithContext(ctx)

	call, ok := h.loadCall(c)
	if !ok {
		return
	}

	if h.Svc.Queued() {
		if err := h.Svc.Enqueue(ctx, call); err != nil {
			respond.Error(c, http.StatusInternalServerError, "queue_error", "failed to enqueue analysis", nil)
			return
		}
		respond.JSON(c, http.StatusAccepted, gin.H{"id": call.ID, "status": call.Status})
		return
	}

	outcome, err := h.Svc.Process(ctx, call)
	if err != nil {
		if errors.Is(err, analysis.ErrTerminalState) {
			respond.Error(c, http.StatusConflict, "conflict", "Анализ уже завершён", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Внутренняя ошибка сервера", nil)
		return
	}
	if outcome.Failed() {
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", outcome.Message, gin.H{"id": call.ID})
		return
	}
	if stored, err := h.Svc.Get(ctx, call.UserID, call.ID); err == nil {
		call = stored
	}
	respond.Success(c, gin.H{
		"analysis": call,
		"result":   outcome.Result,
	})
}

func (h *Handler) stream(c *gin.Context) {
	ctx := analysis.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	c.Request = c.Request.WithContext(ctx)

	call, ok := h.loadCall(c)
	if !ok {
		return
	}

	sse.PrepareHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	c.Writer.Flush()

	transcript, failed, err := h.Svc.Prepare(ctx, call)
	switch {
	case err != nil:
		_ = sse.Write(c.Writer, sse.Error(analysisFailurePrefix+err.Error()))
		c.Writer.Flush()
		return
	case failed != nil:
		_ = sse.Write(c.Writer, failed.Event())
		c.Writer.Flush()
		return
	}

	stream := h.Svc.Stream(ctx, call, transcript)
	if _, err := stream.Deliver(c.Writer, c.Writer.Flush, ctx.Done()); err != nil {
		telemetry.Warn("analysis.client_gone", map[string]any{
			"request_id":  middleware.RequestIDFromContext(c),
			"analysis_id": call.ID,
			"kind":        string(analysis.KindCall),
			"error":       err,
		})
	}
}

func (h *Handler) get(c *gin.Context) {
	callID := c.Param("id")
	call, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), callID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Не найдено", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}
	respond.OK(c, call)
}

func (h *Handler) list(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	calls, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	resp := make([]gin.H, 0, len(calls))
	for _, call := range calls {
		resp = append(resp, gin.H{
			"id":           call.ID,
			"adminName":    call.AdminName,
			"title":        call.Title,
			"status":       call.Status,
			"overallScore": call.OverallScore,
			"duration":     call.DurationSeconds,
			"createdAt":    call.CreatedAt,
		})
	}
	respond.OK(c, resp)
}
