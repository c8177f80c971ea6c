package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/analyzer"
	"go-trustshield/internal/client"
	"go-trustshield/internal/config"
	apperrors "go-trustshield/internal/errors"
	"go-trustshield/internal/intake"
	"go-trustshield/internal/logger"
	"go-trustshield/internal/observer"
	"go-trustshield/pkg/models"
	"go-trustshield/pkg/validation"
)

const healthProbeTimeout = 5 * time.Second

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SubmitResponse is returned when a submission is accepted
type SubmitResponse struct {
	Analyzer  models.Kind `json:"analyzer"`
	SessionID string      `json:"session_id"`
}

// OverviewResponse wraps the dashboard stats. Available is false when the
// service could not be reached and the stats are zeroed.
type OverviewResponse struct {
	Stats           *models.OverviewStats `json:"stats"`
	SuspiciousScans int                   `json:"suspicious_scans"`
	Available       bool                  `json:"available"`
}

// ViewRequest selects the document artifact
type ViewRequest struct {
	View string `json:"view" binding:"required,oneof=original heatmap"`
}

// Handler serves the operator console
type Handler struct {
	registry *analyzer.Registry
	backend  client.Backend
	metrics  *observer.MetricsObserver
	hub      *EventHub
	cfg      *config.Config
}

// NewHandler builds the console router. metrics and hub may be nil.
func NewHandler(registry *analyzer.Registry, backend client.Backend, metrics *observer.MetricsObserver, hub *EventHub, cfg *config.Config) http.Handler {
	h := &Handler{registry: registry, backend: backend, metrics: metrics, hub: hub, cfg: cfg}

	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/api/overview", h.overview)
	r.GET("/api/metrics", h.metricsSnapshot)
	r.GET("/api/source-contexts", sourceContexts)

	analyzers := r.Group("/api/analyzers")
	analyzers.GET("", h.listAnalyzers)
	analyzers.GET("/:kind", h.withAnalyzer(h.snapshot))
	analyzers.DELETE("/:kind", h.withAnalyzer(h.reset))
	analyzers.POST("/:kind/input", h.withAnalyzer(h.collectInput))
	analyzers.POST("/:kind/submit", h.withAnalyzer(h.submit))
	analyzers.PUT("/:kind/view", h.withAnalyzer(h.setView))
	analyzers.GET("/:kind/render", h.withAnalyzer(h.render))

	if hub != nil {
		r.GET("/ws", hub.ServeWS)
	}

	return r
}

type analyzerHandler func(c *gin.Context, a *analyzer.Analyzer)

// withAnalyzer resolves the :kind path segment
func (h *Handler) withAnalyzer(next analyzerHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := models.ParseKind(c.Param("kind"))
		if !ok {
			respondError(c, http.StatusNotFound, "unknown analyzer",
				apperrors.NewNotFoundError(fmt.Sprintf("no analyzer %q", c.Param("kind")), nil))
			return
		}
		a, ok := h.registry.Get(kind)
		if !ok {
			respondError(c, http.StatusNotFound, "analyzer not configured",
				apperrors.NewNotFoundError(fmt.Sprintf("analyzer %q is not registered", kind), nil))
			return
		}
		next(c, a)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	backend := "unreachable"
	if status, err := h.backend.Health(ctx); err != nil {
		logger.WithError(err).Warn("Analysis service health probe failed")
	} else if status.Status != "" {
		backend = status.Status
	} else {
		backend = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"backend": backend,
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) overview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	resp := OverviewResponse{Available: true}
	stats, err := h.backend.OverviewStats(ctx)
	if err != nil {
		logger.WithError(err).Warn("Overview stats unavailable, showing empty dashboard")
		resp.Stats = models.EmptyOverview()
		resp.Available = false
	} else {
		resp.Stats = &stats
	}
	resp.SuspiciousScans = resp.Stats.SuspiciousScans()
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) metricsSnapshot(c *gin.Context) {
	body := gin.H{}
	if h.metrics != nil {
		body["sessions"] = h.metrics.GetMetrics()
	}
	if h.hub != nil {
		body["stream_clients"] = h.hub.Clients()
		body["stream_dropped_events"] = h.hub.Dropped()
	}
	c.JSON(http.StatusOK, body)
}

func sourceContexts(c *gin.Context) {
	c.JSON(http.StatusOK, intake.SourceContexts)
}

func (h *Handler) listAnalyzers(c *gin.Context) {
	all := h.registry.All()
	out := make([]analyzer.Snapshot, 0, len(all))
	for _, a := range all {
		out = append(out, a.Snapshot())
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) snapshot(c *gin.Context, a *analyzer.Analyzer) {
	c.JSON(http.StatusOK, a.Snapshot())
}

func (h *Handler) reset(c *gin.Context, a *analyzer.Analyzer) {
	a.Reset()
	logger.ForAnalyzer(string(a.Kind())).Info("Analyzer reset by operator")
	c.JSON(http.StatusOK, a.Snapshot())
}

// collectInput applies multipart fields to the analyzer's collector. Only
// fields present in the form are changed; "file" replaces the attachment and
// clear_file=true removes it.
func (h *Handler) collectInput(c *gin.Context, a *analyzer.Analyzer) {
	col := a.Collector()
	log := logger.ForAnalyzer(string(a.Kind()))

	target, hasTarget := c.GetPostForm("url")
	if hasTarget && strings.TrimSpace(target) != "" {
		normalized, err := validation.ValidateTarget(target)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid scan target", err)
			return
		}
		target = normalized
	}

	if text, ok := c.GetPostForm("text"); ok {
		col.SetText(text)
	}
	if hasTarget {
		col.SetURL(target)
	}

	amount, hasAmount := c.GetPostForm("amount")
	recipient, hasRecipient := c.GetPostForm("recipient")
	source, hasSource := c.GetPostForm("source_context")
	if hasAmount || hasRecipient || hasSource {
		pending := col.Pending()
		if !hasAmount {
			amount = pending.Amount
		}
		if !hasRecipient {
			recipient = pending.Recipient
		}
		ctxSource := intake.SourceContext(source)
		if hasSource {
			if _, known := intake.SourceContexts[ctxSource]; !known {
				respondError(c, http.StatusBadRequest, "invalid source context",
					apperrors.NewValidationError(fmt.Sprintf("unknown source context %q", source), nil))
				return
			}
		}
		col.SetPayment(amount, recipient, ctxSource)
	}

	if clear, _ := strconv.ParseBool(c.PostForm("clear_file")); clear {
		col.ClearAttachment()
	}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		respondError(c, http.StatusBadRequest, "invalid upload", apperrors.NewValidationError("could not read upload", err))
		return
	default:
		f, err := fh.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid upload", apperrors.NewValidationError("could not open upload", err))
			return
		}
		defer f.Close()

		category, err := col.Accept(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "attachment rejected", err)
			return
		}
		log.WithFields(logrus.Fields{
			"file":     fh.Filename,
			"size":     fh.Size,
			"category": category,
		}).Info("Attachment accepted")
	}

	// Set after the attachment: a new document clears its query
	if query, ok := c.GetPostForm("user_query"); ok {
		col.SetQuery(query)
	}

	c.JSON(http.StatusOK, a.Snapshot())
}

func (h *Handler) submit(c *gin.Context, a *analyzer.Analyzer) {
	id, err := a.Submit(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "submission refused", err)
		return
	}
	c.JSON(http.StatusAccepted, SubmitResponse{Analyzer: a.Kind(), SessionID: id})
}

func (h *Handler) setView(c *gin.Context, a *analyzer.Analyzer) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if err := a.SetView(aligner.ParseView(req.View)); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "view not supported", err)
		return
	}
	c.JSON(http.StatusOK, a.Snapshot())
}

// render writes the aligned document artifact as PNG. ?view= switches the
// view first; ?width= overrides the configured container width.
func (h *Handler) render(c *gin.Context, a *analyzer.Analyzer) {
	if raw := c.Query("view"); raw != "" {
		if err := a.SetView(aligner.ParseView(raw)); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "view not supported", err)
			return
		}
	}

	width := h.cfg.ContainerWidth
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w <= 0 {
			respondError(c, http.StatusBadRequest, "invalid width",
				apperrors.NewValidationError(fmt.Sprintf("width must be a positive integer, got %q", raw), err))
			return
		}
		width = w
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	r, err := a.Render(ctx, width)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "render failed", err)
		return
	}
	if r == nil {
		respondError(c, http.StatusNotFound, "nothing to render",
			apperrors.NewNotFoundError("no document result yet", nil))
		return
	}

	var buf bytes.Buffer
	if err := aligner.EncodePNG(&buf, r); err != nil {
		respondError(c, http.StatusInternalServerError, "render failed", err)
		return
	}
	c.Header("X-Shown-View", string(r.ShownView))
	c.Header("X-Render-Scale", strconv.FormatFloat(r.Scale, 'f', -1, 64))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
