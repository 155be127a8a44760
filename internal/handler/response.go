package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/httperror"
	"github.com/park285/seo-pipeline-go/internal/middleware"
)

// writeError renders the standard error envelope.
func writeError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	status, payload := httperror.Response(err, middleware.GetRequestID(c))
	c.JSON(status, payload)
}

// bindJSON parses the request body, writing a validation error on failure.
func bindJSON(c *gin.Context, out any) bool {
	if c == nil {
		return false
	}
	if err := c.ShouldBindJSON(out); err != nil {
		writeError(c, httperror.NewValidationError(err))
		return false
	}
	return true
}
