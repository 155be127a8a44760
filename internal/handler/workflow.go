package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/httperror"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
)

// WorkflowHandler serves the workflow lifecycle API.
type WorkflowHandler struct {
	runner *pipeline.Runner
	logger *slog.Logger
}

// NewWorkflowHandler builds the workflow handler.
func NewWorkflowHandler(runner *pipeline.Runner, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{runner: runner, logger: logger}
}

// RegisterRoutes mounts the workflow routes.
func (h *WorkflowHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/v1/workflows")
	group.POST("", h.handleCreate)
	group.GET("", h.handleList)
	group.GET("/:id", h.handleGet)
	group.POST("/:id/cancel", h.handleCancel)
	group.GET("/:id/content", h.handleContent)
}

// CreateResponse acknowledges an accepted workflow.
type CreateResponse struct {
	WorkflowID string          `json:"workflow_id"`
	Message    string          `json:"message"`
	Status     pipeline.Status `json:"status"`
}

// WorkflowListResponse wraps the workflow collection.
type WorkflowListResponse struct {
	Workflows []pipeline.Workflow `json:"workflows"`
	Total     int                 `json:"total"`
}

// CancelResponse reports a cancellation result.
type CancelResponse struct {
	WorkflowID string `json:"workflow_id"`
	Message    string `json:"message"`
	Cancelled  bool   `json:"cancelled"`
}

func (h *WorkflowHandler) handleCreate(c *gin.Context) {
	var req content.Request
	if !bindJSON(c, &req) {
		return
	}

	workflow, err := h.runner.Start(req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CreateResponse{
		WorkflowID: workflow.ID,
		Message:    "Content workflow started",
		Status:     workflow.Status,
	})
}

func (h *WorkflowHandler) handleList(c *gin.Context) {
	filter := pipeline.ListFilter{
		Status: pipeline.Status(c.Query("status")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(c, httperror.NewInvalidInput("Unknown status '"+string(filter.Status)+"'"))
		return
	}

	workflows := h.runner.List(filter)
	c.JSON(http.StatusOK, WorkflowListResponse{
		Workflows: workflows,
		Total:     len(workflows),
	})
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func (h *WorkflowHandler) handleGet(c *gin.Context) {
	id := c.Param("id")
	workflow, ok := h.runner.Get(id)
	if !ok {
		writeError(c, httperror.NewWorkflowNotFound(id))
		return
	}
	c.JSON(http.StatusOK, workflow)
}

func (h *WorkflowHandler) handleCancel(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.runner.Get(id); !ok {
		writeError(c, httperror.NewWorkflowNotFound(id))
		return
	}

	cancelled := h.runner.Cancel(id)
	if !cancelled {
		// Known ID that refused cancellation is already terminal.
		workflow, _ := h.runner.Get(id)
		writeError(c, httperror.NewInvalidInput(
			"Workflow already finished with status "+string(workflow.Status)))
		return
	}

	c.JSON(http.StatusOK, CancelResponse{
		WorkflowID: id,
		Message:    "Workflow cancelled by user",
		Cancelled:  true,
	})
}

func (h *WorkflowHandler) handleContent(c *gin.Context) {
	id := c.Param("id")
	workflow, ok := h.runner.Get(id)
	if !ok {
		writeError(c, httperror.NewWorkflowNotFound(id))
		return
	}

	markdown, err := h.runner.Content(id)
	if err != nil {
		writeError(c, httperror.NewContentNotReady(id, string(workflow.Status)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workflow_id": id,
		"title":       workflow.Generated.Title,
		"content":     markdown,
		"word_count":  workflow.Generated.WordCount,
	})
}
