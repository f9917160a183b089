package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/server/internal/shared/logger"
	"github.com/taskboard/server/internal/shared/response"
)

// Recovery converts a panic into a 500 response and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.New(nil)
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					"panic", rec,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
					"stack", string(debug.Stack()),
				)
				c.Abort()
				response.InternalError(c)
			}
		}()
		c.Next()
	}
}
