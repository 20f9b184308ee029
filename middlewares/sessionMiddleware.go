package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/utils"
)

// SessionMiddleware resolves the session token header to a user name and
// stores it in the request context. Requests without a token pass through;
// route handlers that need an identity reject them later.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		userName, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(utils.SetUserNameInContext(c.Request.Context(), userName))
		c.Next()
	}
}
