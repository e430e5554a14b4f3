package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultCORSMethods are advertised when CORSOptions.AllowedMethods is empty.
const DefaultCORSMethods = "GET, POST, OPTIONS"

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	// AllowedOrigins is "*" or a comma-separated list (e.g. "https://a.edu,https://b.edu").
	AllowedOrigins string
	AllowedMethods string
}

// CORS returns a middleware that sets CORS headers for cross-origin requests and answers preflights.
func CORS(opts CORSOptions) gin.HandlerFunc {
	origins := parseOrigins(opts.AllowedOrigins)
	methods := opts.AllowedMethods
	if methods == "" {
		methods = DefaultCORSMethods
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowOrigin := ""
		if len(origins) == 0 || origins["*"] {
			allowOrigin = "*"
		} else if origin != "" && origins[origin] {
			allowOrigin = origin
			c.Header("Vary", "Origin")
		}
		if allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func parseOrigins(s string) map[string]bool {
	m := make(map[string]bool)
	for _, o := range strings.Split(strings.TrimSpace(s), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			m[o] = true
		}
	}
	return m
}
