package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/util"
)

// CronAuth requires "Authorization: Bearer <secret>". With no secret configured
// every request is refused.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logger.Log.Warn("Cron request refused: CRON_SECRET is not set", logger.WithIP(c.ClientIP()))
			util.RespondUnauthorized(c)
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			logger.Log.Warn("Cron request refused: bad bearer token", logger.WithIP(c.ClientIP()))
			util.RespondUnauthorized(c)
			return
		}

		c.Next()
	}
}
