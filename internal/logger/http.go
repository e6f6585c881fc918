package logger

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// AccessMiddleware пишет строку журнала на каждый HTTP-запрос. Тело запроса не читается.
func AccessMiddleware(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// статус известен только после обработки ошибки
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			l.Debug("http_access",
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Path(),
				"status", res.Status,
				"bytes", res.Size,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
			)
			return nil
		}
	}
}
