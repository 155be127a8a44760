package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/cache"
	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/httperror"
)

// RateLimit caps requests per minute per client on /api/ paths. Clients
// are identified by API key when present, falling back to IP.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	limit := 0
	cacheSize := 0
	cacheTTL := time.Duration(0)
	if cfg != nil {
		limit = cfg.RateLimit.RequestsPerMinute
		cacheSize = cfg.RateLimit.CacheSize
		cacheTTL = cfg.RateLimit.CacheTTL
	}

	counter := cache.NewTTL[int](cacheSize, cacheTTL)

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.Method == http.MethodOptions || !shouldProtectPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		identity := rateLimitIdentity(c)
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("%s:%d", identity, window)

		count, ok := counter.Modify(key, func(current int, _ bool) int { return current + 1 })
		if !ok {
			c.Next()
			return
		}

		if count > limit {
			details := map[string]any{
				"path":             c.Request.URL.Path,
				"identity":         identity,
				"limit_per_minute": limit,
			}
			status, payload := httperror.Response(httperror.NewRateLimitExceeded(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

func rateLimitIdentity(c *gin.Context) string {
	if key := extractAPIKey(c); key != "" {
		return "key:" + hashKey(key)
	}

	forwarded := strings.TrimSpace(c.GetHeader("X-Forwarded-For"))
	if forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return "ip:" + ip
		}
	}

	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
