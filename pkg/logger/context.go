package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// echoLoggerKey is where Middleware stores the request-scoped logger on the
// echo context.
const echoLoggerKey = "logger"

// FromEcho returns the request-scoped logger carrying the request id.
// Requests outside the middleware chain (tests, startup) get the global
// logger instead.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(echoLoggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}
