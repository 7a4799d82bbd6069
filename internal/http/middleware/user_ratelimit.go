package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// UserRateLimit limits task mutations per user (not per IP).
// Anonymous requests pass through; the task layer rejects them.
func UserRateLimit(maxWrites int, window time.Duration) gin.HandlerFunc {
	local := newWindowCounter()
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.Next()
			return
		}

		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		key := "write_rl:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		limit(c, local, key, "write:"+c.FullPath(), maxWrites, window)
	}
}
