package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"anchorage/pkg/api"
	"anchorage/pkg/apperr"
	"anchorage/pkg/metrics"
	"anchorage/pkg/service"

	"github.com/gin-gonic/gin"
)

const requestContextKey = "anchorage.request_context"

// =============================================================================
// 1. Request Context
// =============================================================================

// requestContext 为每个请求构造 RequestContext：User 来自请求头 (缺省 unknown)，Op 是请求 URI
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := service.NewRequestContext(c.GetHeader(api.UserHeader), c.Request.RequestURI)
		c.Set(requestContextKey, rc)
		c.Next()
	}
}

func rcFrom(c *gin.Context) service.RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if rc, ok := v.(service.RequestContext); ok {
			return rc
		}
	}
	return service.NewRequestContext("", c.Request.RequestURI)
}

// =============================================================================
// 2. Body Limit
// =============================================================================

func bodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// =============================================================================
// 3. Logging (结构化日志)
// =============================================================================

// accessLog 在请求结束后输出一行日志；handler 通过 c.Error 挂上的错误一并记录
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logRequest(c, time.Since(start))
	}
}

func logRequest(c *gin.Context, duration time.Duration) {
	status := c.Writer.Status()

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		// NotFound / BadRequest 属于调用方问题，记 Warn
		level = slog.LevelWarn
	}

	rc := rcFrom(c)
	slog.Log(context.Background(), level, "HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("route", routeOf(c)),
		slog.String("op", rc.Op),
		slog.String("user", rc.User),
		slog.Int("status", status),
		slog.Duration("dur", duration),
		slog.String("err", c.Errors.String()),
	)
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

// =============================================================================
// 4. Metrics
// =============================================================================

func engineMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// =============================================================================
// 5. Recovery (防弹衣)
// =============================================================================

// recovery 捕获 panic，打印堆栈，并以 Internal 错误记录响应
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("🔥 PANIC RECOVERED",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				rc := rcFrom(c)
				err := apperr.New(apperr.Internal, "internal server error: panic recovered").
					WithOp(rc.Op).WithUser(rc.User)
				_ = c.Error(fmt.Errorf("panic: %v", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, apperr.ToRecord(err))
			}
		}()
		c.Next()
	}
}
