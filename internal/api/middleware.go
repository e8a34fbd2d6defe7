package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDHeader = "X-User-ID"
	userIDKey    = "userID"
)

// RequireUser reads the caller's numeric user id from the X-User-ID header.
// Authentication happens in front of this service.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(userIDHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + userIDHeader + " header"})
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + userIDHeader + " header"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func getUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
