package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/httperror"
	"github.com/park285/seo-pipeline-go/internal/ledger"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
)

// UsageHandler serves the token usage API.
type UsageHandler struct {
	runner *pipeline.Runner
	logger *slog.Logger
}

// NewUsageHandler builds the usage handler.
func NewUsageHandler(runner *pipeline.Runner, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{runner: runner, logger: logger}
}

// RegisterRoutes mounts the usage routes.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/v1/usage")
	group.GET("", h.handleTotal)
	group.GET("/workflow/:id", h.handleWorkflow)
	group.POST("/save", h.handleSave)
}

// SaveReportRequest names the optional output file for a usage report.
type SaveReportRequest struct {
	Filename string `json:"filename,omitempty"`
}

// SaveReportResponse reports where the usage report was written.
type SaveReportResponse struct {
	Filename string `json:"filename"`
}

func (h *UsageHandler) handleTotal(c *gin.Context) {
	report := h.runner.Usage()

	if provider := c.Query("provider"); provider != "" {
		view, ok := ledger.ProviderView(report, provider)
		if !ok {
			writeError(c, httperror.NewInvalidInput("No usage recorded for provider '"+provider+"'"))
			return
		}
		c.JSON(http.StatusOK, view)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *UsageHandler) handleWorkflow(c *gin.Context) {
	id := c.Param("id")
	report, err := h.runner.WorkflowUsage(id)
	if err != nil {
		writeError(c, httperror.NewWorkflowNotFound(id))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *UsageHandler) handleSave(c *gin.Context) {
	var req SaveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, httperror.NewValidationError(err))
		return
	}

	filename, err := ledger.SaveReport(h.runner.Usage(), req.Filename)
	if err != nil {
		h.logger.Error("usage_report_save_failed", "err", err)
		writeError(c, err)
		return
	}

	h.logger.Info("usage_report_saved", "filename", filename)
	c.JSON(http.StatusOK, SaveReportResponse{Filename: filename})
}
