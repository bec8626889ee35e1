// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"nursing-archive-go/pkg/log"
)

// RequestLogger 是一个 Gin 中间件，记录每个请求的概要日志。
// 档案接口的请求体是文件流、响应体可能是受保护的健康信息，一律不进日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"contentLength", c.Request.ContentLength,
			"responseSize", c.Writer.Size(),
		)
	}
}
