package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/pkg/middleware/requestid"
)

// Audit logs every successful write with the acting user so money movements can be traced back
// to a person and a request.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}
		actor := "anonymous"
		if claims := Claims(c); claims != nil {
			actor = claims.UserID
		}
		logger.Info("audit",
			zap.String("action", action),
			zap.String("actor", actor),
			zap.String("request_id", requestid.Value(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
