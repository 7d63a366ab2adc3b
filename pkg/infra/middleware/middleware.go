// Package middleware provides gin middlewares shared by HTTP services.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-x/internal/pkg/httputils"
	"github.com/kart-io/knowledge-x/pkg/utils/errors"
)

// RequestLogger logs each request with method, path, status and latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Infow("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery recovers from handler panics and returns a structured 500 response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("handler panic recovered",
					"path", c.Request.URL.Path,
					"panic", r,
				)
				httputils.WriteResponse(c, errors.ErrInternal, nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
