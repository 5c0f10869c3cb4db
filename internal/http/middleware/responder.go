package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponderKey guards the responder workflow routes. An empty required key
// disables the check (dev mode).
func ResponderKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-Responder-Key")
		if key != required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid responder key",
				},
			})
			return
		}
		c.Next()
	}
}
