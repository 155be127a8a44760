package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/httperror"
)

// APIKeyAuth checks the API key on /api/ paths. With no keys configured
// and auth not required, every request passes.
func APIKeyAuth(cfg *config.Config) gin.HandlerFunc {
	var expected []string
	required := false
	if cfg != nil {
		for _, key := range cfg.HTTPAuth.APIKeys {
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				expected = append(expected, trimmed)
			}
		}
		required = cfg.HTTPAuth.Required
	}

	return func(c *gin.Context) {
		if len(expected) == 0 && !required {
			c.Next()
			return
		}

		if !shouldProtectPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		provided := extractAPIKey(c)
		if !keyMatches(provided, expected) {
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

func keyMatches(provided string, expected []string) bool {
	if provided == "" {
		return false
	}
	matched := false
	for _, key := range expected {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
			matched = true
		}
	}
	return matched
}

func extractAPIKey(c *gin.Context) string {
	if c == nil {
		return ""
	}

	value := strings.TrimSpace(c.GetHeader("X-API-Key"))
	if value != "" {
		return value
	}

	authValue := strings.TrimSpace(c.GetHeader("Authorization"))
	if authValue == "" {
		return ""
	}

	if strings.HasPrefix(strings.ToLower(authValue), "bearer ") {
		return strings.TrimSpace(authValue[7:])
	}

	return ""
}

func shouldProtectPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
