package http

import (
	"time"

	"github.com/uakfdotb/p-levelup/common/log"
)

// LoggerMiddleware 记录请求和耗时
func LoggerMiddleware(lg *log.Logger) MiddlewareFunc {
	if lg == nil {
		lg = log.Default()
	}
	return func(c *Context) error {
		start := time.Now()
		c.Next()
		lg.Debug("HTTP %s %s from %s -> %d in %v", c.Method(), c.Path(), c.ClientIP(), c.Status(), time.Since(start))
		return nil
	}
}
