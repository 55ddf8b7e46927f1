package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// defaultAllowedOrigins covers local development frontends; deployments add
// their own via ALLOWED_ORIGINS.
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

// corsMiddleware permits browser requests from known origins. Exact match or
// prefix match, so trailing slashes and subpaths pass. Non-browser requests
// (no Origin header) are always allowed.
func corsMiddleware(extraOrigins []string) gin.HandlerFunc {
	allowed := make([]string, 0, len(defaultAllowedOrigins)+len(extraOrigins))
	allowed = append(allowed, defaultAllowedOrigins...)
	allowed = append(allowed, extraOrigins...)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		permitted := false
		for _, o := range allowed {
			if origin == o || strings.HasPrefix(origin, o) {
				permitted = true
				break
			}
		}
		if !permitted {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Range")
		c.Header("Access-Control-Expose-Headers", "Content-Range, Accept-Ranges, Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
