package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS returns middleware that allows cross-origin access from any
// origin. The API is public and cookie-free, so a wildcard origin
// carries no credential risk. Preflight requests are answered directly
// with 204.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "300")
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}
