package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/PittChallenge/pittchallenge.com/pkg/response"
	"github.com/PittChallenge/pittchallenge.com/pkg/utils"
)

// RequireKey returns a middleware that allows only requests whose ?key= matches key.
func RequireKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.MatchKey(c.Query("key"), key) {
			response.Unauthorized(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
