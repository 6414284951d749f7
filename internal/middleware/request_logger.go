package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"

	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/pkg/logging"
)

// RequestLogger logs one line per request and records it in the HTTP metrics.
func RequestLogger(logger *logging.Logger, m *metrics.BookingMetrics) echo.MiddlewareFunc {
	return echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRoutePath: true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= 500 {
				level = slog.LevelError
			}
			logger.Log(c.Request().Context(), level, "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			)
			m.ObserveHTTP(v.Method, v.RoutePath, v.Status, v.Latency)
			return nil
		},
	})
}
